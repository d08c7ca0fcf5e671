// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/cmdtree/cmdtree/internal/config"
	"github.com/cmdtree/cmdtree/internal/engine"
	"github.com/cmdtree/cmdtree/internal/issue"
	"github.com/cmdtree/cmdtree/internal/match"
	"github.com/cmdtree/cmdtree/internal/params"
)

// styledRenderer is the engine.Renderer the CLI dispatches with. Markdown
// help goes through glamour when stdout is a terminal; everything else is
// lipgloss-styled text, which degrades to plain text off a terminal.
type styledRenderer struct {
	plain    engine.PlainRenderer
	markdown *glamour.TermRenderer
	// guides prints the issue guide after unknown-command and handler errors.
	guides     bool
	guideStyle string
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// glamourStyle maps ui.color_scheme to a glamour standard style. Output that
// is not a terminal always uses "notty".
func (a *App) glamourStyle() string {
	if !isTerminal(a.stdout) {
		return "notty"
	}
	switch a.cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		if lipgloss.HasDarkBackground() {
			return "dark"
		}
		return "light"
	}
}

// renderer builds the dispatch renderer for this process.
func (a *App) renderer() engine.Renderer {
	r := &styledRenderer{guides: a.verbose, guideStyle: a.glamourStyle()}
	if isTerminal(a.stdout) {
		md, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.guideStyle),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			a.logger.Debug("markdown renderer unavailable", "error", err)
		} else {
			r.markdown = md
		}
	}
	return r
}

// ProgramHelp implements engine.Renderer.
func (r *styledRenderer) ProgramHelp(w io.Writer, info engine.ProgramInfo) {
	title := TitleStyle.Render(info.Name)
	if info.Version != "" {
		title += " " + SubtitleStyle.Render(info.Version)
	}
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "\nUsage: %s <command> [args] [--options]\n", info.Name)
	if len(info.Commands) == 0 {
		fmt.Fprintln(w, "\nNo commands found.")
		return
	}

	width := 0
	for _, c := range info.Commands {
		width = max(width, len(engine.DisplayPath(c.Path)))
	}
	fmt.Fprintln(w, "\n"+TitleStyle.Render("Commands:"))
	for _, c := range info.Commands {
		path := engine.DisplayPath(c.Path)
		line := "  " + CmdStyle.Render(path)
		if summary := engine.Summary(c); summary != "" {
			line += strings.Repeat(" ", width-len(path)+2) + SubtitleStyle.Render(summary)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "\nRun '%s <command> --help' for details.\n", info.Name)
}

// CommandHelp implements engine.Renderer.
func (r *styledRenderer) CommandHelp(w io.Writer, info engine.CommandInfo) {
	r.plain.CommandHelp(w, info)
}

// Markdown implements engine.Renderer.
func (r *styledRenderer) Markdown(w io.Writer, text string) {
	if r.markdown != nil {
		if out, err := r.markdown.Render(text); err == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	r.plain.Markdown(w, text)
}

// Version implements engine.Renderer.
func (r *styledRenderer) Version(w io.Writer, version string) {
	r.plain.Version(w, version)
}

// UnknownCommand implements engine.Renderer.
func (r *styledRenderer) UnknownCommand(w io.Writer, program string, err *match.NotFoundError) {
	fmt.Fprintf(w, "%s %v\n", ErrorStyle.Render(program+":"), err)
	if len(err.Suggestions) > 0 {
		fmt.Fprintln(w, "\nDid you mean?")
		for _, s := range err.Suggestions {
			fmt.Fprintln(w, "  "+CmdStyle.Render(s))
		}
	}
	r.guide(w, issue.CommandNotFoundId)
}

// Error implements engine.Renderer.
func (r *styledRenderer) Error(w io.Writer, program string, err error) {
	var verr *params.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render(program+":"), verr.Message)
		for _, is := range verr.Issues {
			if is.Path == "" {
				fmt.Fprintf(w, "  - %s\n", is.Message)
				continue
			}
			fmt.Fprintf(w, "  - %s: %s\n", CmdStyle.Render(is.Path), is.Message)
		}
		r.guide(w, issue.InvalidParametersId)
		return
	}
	fmt.Fprintf(w, "%s %v\n", ErrorStyle.Render(program+":"), err)
	r.guide(w, issue.HandlerFailedId)
}

func (r *styledRenderer) guide(w io.Writer, id issue.Id) {
	if !r.guides {
		return
	}
	g := issue.Get(id)
	if g == nil {
		return
	}
	if out, err := g.Render(r.guideStyle); err == nil {
		fmt.Fprint(w, out)
	}
}
