// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/match"
	"github.com/cmdtree/cmdtree/internal/params"
)

type (
	// Renderer writes everything the engine prints itself. The CLI swaps in a
	// styled implementation; PlainRenderer is the default.
	Renderer interface {
		ProgramHelp(w io.Writer, info ProgramInfo)
		CommandHelp(w io.Writer, info CommandInfo)
		Markdown(w io.Writer, text string)
		Version(w io.Writer, version string)
		UnknownCommand(w io.Writer, program string, err *match.NotFoundError)
		Error(w io.Writer, program string, err error)
	}

	// ProgramInfo is the input of program help.
	ProgramInfo struct {
		Name     string
		Version  string
		Commands []*discovery.CommandNode
	}

	// CommandInfo is the input of generated command help.
	CommandInfo struct {
		Program  string
		Command  *discovery.CommandNode
		Contract *params.Contract
	}

	// PlainRenderer renders unstyled text.
	PlainRenderer struct{}
)

// DisplayPath renders a command path the way users type it.
func DisplayPath(path string) string {
	return strings.ReplaceAll(path, "/", " ")
}

// ProgramHelp implements Renderer.
func (PlainRenderer) ProgramHelp(w io.Writer, info ProgramInfo) {
	fmt.Fprintf(w, "Usage: %s <command> [args] [--options]\n", info.Name)
	if len(info.Commands) == 0 {
		fmt.Fprintln(w, "\nNo commands found.")
		return
	}
	fmt.Fprintln(w, "\nCommands:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range info.Commands {
		fmt.Fprintf(tw, "  %s\t%s\n", DisplayPath(c.Path), Summary(c))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\nRun '%s <command> --help' for details.\n", info.Name)
}

// CommandHelp implements Renderer.
func (PlainRenderer) CommandHelp(w io.Writer, info CommandInfo) {
	fmt.Fprint(w, CommandHelpText(info))
}

// Markdown implements Renderer.
func (PlainRenderer) Markdown(w io.Writer, text string) {
	fmt.Fprint(w, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(w)
	}
}

// Version implements Renderer.
func (PlainRenderer) Version(w io.Writer, version string) {
	fmt.Fprintln(w, version)
}

// UnknownCommand implements Renderer.
func (PlainRenderer) UnknownCommand(w io.Writer, program string, err *match.NotFoundError) {
	fmt.Fprintf(w, "%s: %v\n", program, err)
	if len(err.Suggestions) > 0 {
		fmt.Fprintln(w, "\nDid you mean?")
		for _, s := range err.Suggestions {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
}

// Error implements Renderer.
func (PlainRenderer) Error(w io.Writer, program string, err error) {
	fmt.Fprint(w, ErrorText(program, err))
}

// Summary returns the one-line description of a command, if any.
func Summary(c *discovery.CommandNode) string {
	if c.Metadata == nil {
		return ""
	}
	desc, _, _ := strings.Cut(strings.TrimSpace(c.Metadata.Description), "\n")
	return desc
}

// CommandHelpText generates markdown help from a command's metadata and
// parameter contract.
func CommandHelpText(info CommandInfo) string {
	var b strings.Builder
	c := info.Command
	fmt.Fprintf(&b, "Usage: %s %s [args] [--options]\n", info.Program, DisplayPath(c.Path))

	md := c.Metadata
	if md != nil && md.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(md.Description))
	}
	if aliases := c.Aliases(); len(aliases) > 0 {
		fmt.Fprintf(&b, "\nAliases: %s\n", strings.Join(aliases, ", "))
	}
	if names := c.ParamNames(); len(names) > 0 {
		b.WriteString("\nPath parameters:\n")
		for _, n := range names {
			fmt.Fprintf(&b, "  %s\n", n)
		}
	}
	if info.Contract != nil && len(info.Contract.Fields) > 0 {
		b.WriteString("\nParameters:\n")
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, f := range info.Contract.Fields {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.Name, fieldSource(f), fieldNotes(f))
		}
		_ = tw.Flush()
	}
	if md != nil && len(md.Examples) > 0 {
		b.WriteString("\nExamples:\n")
		for _, ex := range md.Examples {
			fmt.Fprintf(&b, "  %s\n", ex)
		}
	}
	if md != nil && md.AdditionalHelp != "" {
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(md.AdditionalHelp))
	}
	return b.String()
}

func fieldSource(f params.Field) string {
	var parts []string
	if f.ArgIndex != nil {
		parts = append(parts, fmt.Sprintf("arg %d", *f.ArgIndex+1))
	}
	if f.Option != "" {
		parts = append(parts, "--"+f.Option)
	}
	return strings.Join(parts, ", ")
}

func fieldNotes(f params.Field) string {
	typ := f.Type
	if typ == "" {
		typ = params.TypeString
	}
	notes := []string{string(typ)}
	if f.Required {
		notes = append(notes, "required")
	}
	if f.Default != nil {
		notes = append(notes, fmt.Sprintf("default %v", f.Default))
	}
	if f.Description != "" {
		notes = append(notes, f.Description)
	}
	return strings.Join(notes, "; ")
}

// ErrorText renders err for the built-in error handler. Validation failures
// list one issue per line.
func ErrorText(program string, err error) string {
	var b strings.Builder
	var verr *params.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(&b, "%s: %s\n", program, verr.Message)
		for _, is := range verr.Issues {
			fmt.Fprintf(&b, "  - %s\n", is)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "%s: %v\n", program, err)
	return b.String()
}
