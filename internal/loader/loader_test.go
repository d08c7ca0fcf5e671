// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/engine"
	"github.com/cmdtree/cmdtree/internal/registry"
	"github.com/cmdtree/cmdtree/internal/testutil"
)

var quiet = slog.New(slog.DiscardHandler)

// dispatch scans root and runs one invocation against it.
func dispatch(t *testing.T, root string, table Table, environ []string, args ...string) (int, string, string) {
	t.Helper()
	st, err := discovery.Scan(context.Background(), root, discovery.WithLogger(quiet))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if st.HasErrors() {
		t.Fatalf("scan diagnostics: %v", st.Diagnostics)
	}

	var stdout, stderr bytes.Buffer
	e := engine.New(st, New(st.Root, table, WithCUELogger(quiet)),
		engine.WithProgram("demo"),
		engine.WithStdio(strings.NewReader(""), &stdout, &stderr),
		engine.WithEnviron(environ),
		engine.WithLogger(quiet),
	)
	code := e.Dispatch(context.Background(), args)
	return code, stdout.String(), stderr.String()
}

const demoTree = `
-- env.cue --
vars: {
	GREETING: {default: "Hello"}
	REGION: {pattern: "[a-z]{2}"}
}
-- version.cue --
version: "2.0.0"
-- middleware.cue --
before: "echo before"
after:  "echo after"
-- hello/command.cue --
meta: {description: "Say hello", aliases: ["hi"]}
run: #"echo "$GREETING, $CMDTREE_VAR_NAME!""#
-- hello/params.cue --
fields: [{field: "name", argIndex: 0, option: "name", default: "World"}]
-- user/[id]/show/command.cue --
run: #"echo "user=$CMDTREE_PARAM_ID rest=$1 opt=$CMDTREE_OPT_FORMAT cmd=$CMDTREE_COMMAND""#
-- typed/params.cue --
fields: [
	{field: "count", option: "count"},
	{field: "loud", option: "loud"},
]
schema: {
	count: int & >=1 | *1
	loud:  bool | *false
}
-- typed/command.cue --
run: #"echo "count=$CMDTREE_VAR_COUNT loud=$CMDTREE_VAR_LOUD""#
-- fail/command.cue --
run: "echo partial; exit 3"
-- fail/error.cue --
run: #"echo "handled: $CMDTREE_ERROR" >&2"#
-- broken/command.cue --
run: "exit 5"
`

func TestCUEHandlers_EndToEnd(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteArchive(t, root, demoTree)

	tests := []struct {
		name       string
		environ    []string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{name: "default param", args: []string{"hello"}, wantStdout: "before\nHello, World!\nafter\n"},
		{name: "positional", args: []string{"hello", "Ada"}, wantStdout: "before\nHello, Ada!\nafter\n"},
		{name: "alias", args: []string{"hi", "--name", "Bob"}, wantStdout: "before\nHello, Bob!\nafter\n"},
		{name: "process env wins over default", environ: []string{"GREETING=Hey"}, args: []string{"hello"}, wantStdout: "before\nHey, World!\nafter\n"},
		{
			name:       "dynamic segment",
			args:       []string{"user", "42", "show", "extra", "--format", "json"},
			wantStdout: "before\nuser=42 rest=extra opt=json cmd=user/[id]/show\nafter\n",
		},
		{name: "schema defaults", args: []string{"typed"}, wantStdout: "before\ncount=1 loud=false\nafter\n"},
		{name: "schema conversion", args: []string{"typed", "--count", "3", "--loud"}, wantStdout: "before\ncount=3 loud=true\nafter\n"},
		{name: "schema violation", args: []string{"typed", "--count", "0"}, wantCode: 1, wantStderr: "demo: invalid parameters: "},
		{name: "version", args: []string{"--version"}, wantStdout: "2.0.0\n"},
		{name: "env pattern", environ: []string{"REGION=europe"}, args: []string{"hello"}, wantCode: 1, wantStderr: `REGION does not match "[a-z]{2}"`},
		{
			name:       "command error handler keeps exit status",
			args:       []string{"fail"},
			wantCode:   3,
			wantStdout: "before\npartial\nafter\n",
			wantStderr: "handled: command handler (" + filepath.Join(root, "fail", "command.cue") + "): script ",
		},
		{name: "default error output", args: []string{"broken"}, wantCode: 5, wantStdout: "before\nafter\n", wantStderr: "exited with status 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, stdout, stderr := dispatch(t, root, nil, tt.environ, tt.args...)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr %q)", code, tt.wantCode, stderr)
			}
			if stdout != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", stdout, tt.wantStdout)
			}
			if !strings.Contains(stderr, tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.wantStderr)
			}
		})
	}
}

func TestCUEHandlers_ErrorMessageAndExitCode(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"error.cue":          "message: \"${command} failed: ${error}\"\nexitCode: 4\n",
		"deploy/command.cue": "run: \"exit 1\"\n",
	})

	code, _, stderr := dispatch(t, root, nil, nil, "deploy")
	if code != 4 {
		t.Errorf("exit code = %d, want 4", code)
	}
	if !strings.HasPrefix(stderr, "deploy failed: command handler") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestCUEHandlers_EnvFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"env.cue":          "files: [\"defaults.env\", \"local.env?\"]\nvars: TOKEN: required: true\n",
		"defaults.env":     "TOKEN=from-file\nEXTRA=1\n",
		"show/command.cue": "run: #\"echo \"$TOKEN $EXTRA\"\"#\n",
		"notes.txt":        "ignored",
	})

	code, stdout, stderr := dispatch(t, root, nil, nil, "show")
	if code != 0 || stdout != "from-file 1\n" {
		t.Errorf("code = %d, stdout = %q, stderr = %q", code, stdout, stderr)
	}

	code, stdout, _ = dispatch(t, root, nil, []string{"TOKEN=from-env"}, "show")
	if code != 0 || stdout != "from-env 1\n" {
		t.Errorf("process env: code = %d, stdout = %q", code, stdout)
	}
}

func TestCUEHandlers_MissingRequiredEnv(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"env.cue":          "vars: {API_KEY: required: true, OTHER: required: true}\n",
		"show/command.cue": "run: \"echo never\"\n",
	})

	code, stdout, stderr := dispatch(t, root, nil, nil, "show")
	if code != 1 || stdout != "" {
		t.Errorf("code = %d, stdout = %q", code, stdout)
	}
	if !strings.Contains(stderr, "invalid environment: API_KEY is required; OTHER is required") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestCUELoader_RejectsInvalidFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		kind    registry.Kind
		content string
		want    string
	}{
		{name: "missing run", kind: registry.KindCommand, content: "meta: {}\n", want: "run"},
		{name: "unknown field", kind: registry.KindCommand, content: "run: \"true\"\ncolor: 1\n", want: "color"},
		{name: "script syntax", kind: registry.KindCommand, content: "run: \"echo (\"\n", want: "syntax error"},
		{name: "bad field type", kind: registry.KindParams, content: "fields: [{field: \"n\", type: \"date\"}]\n", want: "type"},
		{name: "shared option", kind: registry.KindParams, content: "fields: [{field: \"a\", option: \"x\"}, {field: \"b\", option: \"x\"}]\n", want: "share option"},
		{name: "schema not a struct", kind: registry.KindParams, content: "schema: 1\n", want: "schema"},
		{name: "empty version", kind: registry.KindVersion, content: "version: \"\"\n", want: "version"},
		{name: "bad pattern", kind: registry.KindEnv, content: "vars: X: pattern: \"(\"\n", want: "pattern"},
		{name: "exit code range", kind: registry.KindError, content: "exitCode: 300\n", want: "exitCode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			def, _ := registry.Default().Get(tt.kind)
			path := filepath.Join(t.TempDir(), def.FileName+".cue")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := NewCUELoader(WithCUELogger(quiet)).Load(context.Background(), discovery.HandlerEntry{FilePath: path, Definition: def})
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestTableLoader(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"hello/command.go": "package hello\n",
		"hello/help.go":    "package hello\n",
		"version.go":       "package root\n",
	})

	var ran bool
	table := Table{
		"hello/command.go": engine.Command(func(_ context.Context, c *engine.Context) error {
			ran = true
			return nil
		}),
		"hello/help": engine.Help("# Hello\nGreets."),
		"version":    engine.Version("3.1.4"),
	}

	if code, _, stderr := dispatch(t, root, table, nil, "hello"); code != 0 || !ran {
		t.Errorf("code = %d, ran = %v, stderr = %q", code, ran, stderr)
	}
	if _, stdout, _ := dispatch(t, root, table, nil, "hello", "--help"); stdout != "# Hello\nGreets.\n" {
		t.Errorf("help stdout = %q", stdout)
	}
	if _, stdout, _ := dispatch(t, root, table, nil, "-v"); stdout != "3.1.4\n" {
		t.Errorf("version stdout = %q", stdout)
	}

	delete(table, "version")
	code, _, stderr := dispatch(t, root, table, nil, "hello")
	if code != 1 || !strings.Contains(stderr, "version.go is not registered") {
		t.Errorf("code = %d, stderr = %q", code, stderr)
	}
}

func TestMux_UnknownExtension(t *testing.T) {
	t.Parallel()

	def, _ := registry.Default().Get(registry.KindCommand)
	_, err := NewMux().Handle("cue", NewCUELoader()).Load(context.Background(), discovery.HandlerEntry{FilePath: "/x/command.lua", Definition: def})
	if !errors.Is(err, engine.ErrHandlerNotFound) {
		t.Errorf("error = %v, want ErrHandlerNotFound", err)
	}
}

func TestScriptEnv(t *testing.T) {
	t.Parallel()

	c := &engine.Context{
		InvocationID:  "inv-9",
		CommandPath:   "user/[id]/show",
		Params:        map[string]string{"id": "42"},
		Options:       map[string]string{"dry-run": "true"},
		RawEnv:        map[string]string{"PATH": "/bin", "CMDTREE_PARAM_STALE": "x"},
		Env:           map[string]string{"REGION": "eu"},
		Version:       "1.0.0",
		ValidatedData: map[string]any{"count": float64(2)},
	}
	got := ScriptEnv(c).Map()
	want := map[string]string{
		"PATH":                  "/bin",
		"REGION":                "eu",
		"CMDTREE_COMMAND":       "user/[id]/show",
		"CMDTREE_INVOCATION_ID": "inv-9",
		"CMDTREE_PARAM_ID":      "42",
		"CMDTREE_OPT_DRY_RUN":   "true",
		"CMDTREE_VAR_COUNT":     "2",
		"CMDTREE_VERSION":       "1.0.0",
	}
	if len(got) != len(want) {
		t.Errorf("env = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}
