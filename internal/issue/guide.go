// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Guide identifiers. The zero Id means "no guide".
const (
	RootNotFoundId Id = iota + 1
	ScanFailedId
	ManifestInvalidId
	CommandNotFoundId
	InvalidParametersId
	HandlerFailedId
	ConfigLoadFailedId
)

type (
	// Id selects a guide.
	Id int

	// MarkdownMsg is guide text in Markdown.
	MarkdownMsg string

	// HttpLink is a documentation URL.
	HttpLink string

	// Guide is a long-form explanation of one failure class.
	Guide struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

var guides = map[Id]*Guide{
	RootNotFoundId: {
		id: RootNotFoundId,
		mdMsg: `
# Command root not found

The directory holding the command tree does not exist or is not a directory.

## Things you can try
- Pass the root explicitly:
~~~
$ cmdtree run ./commands hello
~~~
- Set ` + "`root`" + ` in your config file or export ` + "`CMDTREE_ROOT`" + `.`,
	},
	ScanFailedId: {
		id: ScanFailedId,
		mdMsg: `
# The command tree has errors

Discovery reported error diagnostics, so no command was run.

## Things you can try
- List every finding:
~~~
$ cmdtree check ./commands
~~~
- Give each alias to exactly one command.
- Add the missing handler files the diagnostics name.`,
	},
	ManifestInvalidId: {
		id: ManifestInvalidId,
		mdMsg: `
# Manifest could not be read

The file is not a manifest written by ` + "`cmdtree manifest`" + `, or it was
edited into an invalid shape.

## Things you can try
- Regenerate it:
~~~
$ cmdtree manifest ./commands --format yaml -o cmdtree.yaml
~~~
- Check the extension matches the format: .yaml, .json or .toml.`,
	},
	CommandNotFoundId: {
		id: CommandNotFoundId,
		mdMsg: `
# Unknown command

No directory in the tree matches the words you typed.

## Things you can try
- Show the available commands:
~~~
$ cmdtree run ./commands --help
~~~
- Dynamic segments such as ` + "`[id]`" + ` accept any single word.`,
	},
	InvalidParametersId: {
		id: InvalidParametersId,
		mdMsg: `
# Invalid parameters

The command's parameter contract rejected the arguments.

## Things you can try
- Show the parameters the command accepts:
~~~
$ cmdtree run ./commands <command> --help
~~~
- Options take their value as ` + "`--name value`" + ` or ` + "`--name=value`" + `.`,
	},
	HandlerFailedId: {
		id: HandlerFailedId,
		mdMsg: `
# A handler failed

A handler file returned an error or its script exited with a non-zero status.
The message names the handler kind and the file.

## Things you can try
- Re-run with ` + "`--verbose`" + ` to see the full error chain.
- Add an ` + "`error.cue`" + ` next to the command to customize the output.`,
	},
	ConfigLoadFailedId: {
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

## Things you can try
- Show the effective configuration:
~~~
$ cmdtree config show
~~~
- Check the file against the documented keys: root, program, scan, log, ui.`,
	},
}

// Get returns the guide for id, or nil.
func Get(id Id) *Guide {
	return guides[id]
}

// Values returns every guide ordered by Id.
func Values() []*Guide {
	ids := slices.Sorted(maps.Keys(guides))
	out := make([]*Guide, len(ids))
	for i, id := range ids {
		out[i] = guides[id]
	}
	return out
}

// Id returns the guide's identifier.
func (g *Guide) Id() Id { return g.id }

// MarkdownMsg returns the guide text.
func (g *Guide) MarkdownMsg() MarkdownMsg { return g.mdMsg }

// DocLinks returns a copy of the documentation links.
func (g *Guide) DocLinks() []HttpLink { return slices.Clone(g.docLinks) }

// Render renders the guide with the named glamour style ("dark", "light",
// "notty"...).
func (g *Guide) Render(style string) (string, error) {
	md := string(g.mdMsg)
	if len(g.docLinks) > 0 {
		var b strings.Builder
		b.WriteString(md)
		b.WriteString("\n\n## See also\n")
		for _, l := range g.docLinks {
			b.WriteString("- <" + string(l) + ">\n")
		}
		md = b.String()
	}
	return glamour.Render(md, style)
}
