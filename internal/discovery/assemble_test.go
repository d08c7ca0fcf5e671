// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"reflect"
	"testing"

	"github.com/cmdtree/cmdtree/internal/registry"
)

func TestAssemble_MatchesScan(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"env.cue":                    `vars: {}`,
		"user/command.cue":           `run: "true"`,
		"user/[id]/command.cue":      `run: "true"`,
		"user/[id]/params.cue":       `fields: []`,
		"user/create/command.cue":    `meta: aliases: ["new"]` + "\n" + `run: "true"`,
		"user/new/command.cue":       `run: "true"`,
		"orphan/help.cue":            `text: "x"`,
		"user/[id]/show/command.cue": `run: "true"`,
	})

	scanned, err := Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	globals := map[registry.Kind]string{}
	for _, kind := range scanned.GlobalKinds() {
		e, _ := scanned.Global(kind)
		globals[kind] = e.FilePath
	}
	// Reverse the command order to show Assemble sorts.
	cmds := make([]*CommandNode, 0, len(scanned.Commands))
	for i := len(scanned.Commands) - 1; i >= 0; i-- {
		cmds = append(cmds, scanned.Commands[i])
	}

	got := Assemble(Assembly{
		Root:        scanned.Root,
		Globals:     globals,
		Version:     scanned.Version,
		Commands:    cmds,
		Diagnostics: scanned.Diagnostics,
	})

	if !reflect.DeepEqual(commandPaths(got), commandPaths(scanned)) {
		t.Errorf("commands = %v, want %v", commandPaths(got), commandPaths(scanned))
	}
	if !reflect.DeepEqual(got.Handlers, scanned.Handlers) {
		t.Errorf("handlers differ:\n got %v\nwant %v", got.Handlers, scanned.Handlers)
	}
	if !reflect.DeepEqual(codes(got.Diagnostics), codes(scanned.Diagnostics)) {
		t.Errorf("diagnostics = %v, want %v", codes(got.Diagnostics), codes(scanned.Diagnostics))
	}
	if codes(got.Diagnostics)[CodeAliasCollision] == 0 {
		t.Error("alias collision was not recomputed")
	}
}
