// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cmdtree/cmdtree/internal/config"
	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/engine"
	"github.com/cmdtree/cmdtree/internal/issue"
	"github.com/cmdtree/cmdtree/internal/match"
	"github.com/cmdtree/cmdtree/internal/params"
)

type stubProvider struct {
	cfg *config.Config
	err error
}

func (s stubProvider) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	return s.cfg, s.err
}

func newTestApp(provider config.Provider) (*App, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	app := NewApp(Dependencies{
		Config:  provider,
		Stdin:   strings.NewReader(""),
		Stdout:  &stdout,
		Stderr:  &stderr,
		Environ: []string{},
	})
	return app, &stdout, &stderr
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain error", errors.New("boom"), 1},
		{"exit error", &ExitError{Code: 5}, 5},
		{"wrapped exit error", errors.Join(errors.New("ctx"), &ExitError{Code: 3}), 3},
		{"zero code", &ExitError{Err: errors.New("x")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestApp_RenderError(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(nil)

	var buf bytes.Buffer
	app.renderError(&buf, &ExitError{Code: 2})
	if buf.Len() != 0 {
		t.Errorf("reported ExitError printed %q, want nothing", buf.String())
	}

	ae := issue.NewErrorContext().
		WithOperation("load command tree").
		WithResource("./commands").
		WithSuggestion("Run cmdtree check").
		Wrap(errors.New("boom")).
		BuildError()
	buf.Reset()
	app.renderError(&buf, ae)
	out := buf.String()
	for _, want := range []string{"Error:", "failed to load command tree", "./commands", "Run cmdtree check"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderError output %q does not contain %q", out, want)
		}
	}
}

func TestApp_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("config verbose applies unless the flag was set", func(t *testing.T) {
		t.Parallel()
		cfg := config.DefaultConfig()
		cfg.UI.Verbose = true
		app, _, _ := newTestApp(stubProvider{cfg: cfg})
		if err := app.initialize(context.Background(), false); err != nil {
			t.Fatalf("initialize() error = %v", err)
		}
		if !app.verbose {
			t.Error("verbose = false, want true from config")
		}

		app, _, _ = newTestApp(stubProvider{cfg: cfg})
		if err := app.initialize(context.Background(), true); err != nil {
			t.Fatalf("initialize() error = %v", err)
		}
		if app.verbose {
			t.Error("verbose = true, want the flag value false")
		}
	})

	t.Run("broken implicit config falls back to defaults", func(t *testing.T) {
		t.Parallel()
		app, _, stderr := newTestApp(stubProvider{err: errors.New("bad config")})
		if err := app.initialize(context.Background(), false); err != nil {
			t.Fatalf("initialize() error = %v", err)
		}
		if !strings.Contains(stderr.String(), "Warning: bad config") {
			t.Errorf("stderr = %q, want a warning", stderr.String())
		}
		if app.cfg.Program.Name != config.AppName {
			t.Errorf("program name = %q, want default", app.cfg.Program.Name)
		}
	})

	t.Run("broken explicit config is fatal", func(t *testing.T) {
		t.Parallel()
		app, _, _ := newTestApp(stubProvider{err: errors.New("bad config")})
		app.configPath = "custom.cue"
		if err := app.initialize(context.Background(), false); err == nil {
			t.Fatal("initialize() error = nil, want the load error")
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		lc      config.LogConfig
		verbose bool
		want    string
		silent  bool
	}{
		{"json", config.LogConfig{Level: config.LogLevelInfo, Format: config.LogFormatJSON}, false, `"scanned"`, false},
		{"logfmt", config.LogConfig{Level: config.LogLevelInfo, Format: config.LogFormatLogfmt}, false, "msg=scanned", false},
		{"below level", config.LogConfig{Level: config.LogLevelWarn, Format: config.LogFormatText}, false, "", true},
		{"verbose lowers level", config.LogConfig{Level: config.LogLevelError, Format: config.LogFormatText}, true, "scanned", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			newLogger(&buf, tt.lc, tt.verbose).Info("scanned", "commands", 3)
			got := buf.String()
			if tt.silent {
				if got != "" {
					t.Errorf("logged %q, want nothing", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("logged %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestApp_TreeSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "tree.yaml")
	if err := os.WriteFile(manifestPath, []byte("schema_version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		cfgRoot    string
		rootFlag   string
		args       []string
		takesFirst bool
		wantSource string
		wantRest   []string
		wantGuide  issue.Id
	}{
		{name: "first argument", args: []string{dir, "hello"}, takesFirst: true, wantSource: dir, wantRest: []string{"hello"}},
		{name: "flag wins", rootFlag: dir, args: []string{"hello"}, takesFirst: true, wantSource: dir, wantRest: []string{"hello"}},
		{name: "config root", cfgRoot: dir, args: []string{"hello"}, takesFirst: true, wantSource: dir, wantRest: []string{"hello"}},
		{name: "manifest", args: []string{manifestPath}, takesFirst: true, wantSource: manifestPath, wantRest: []string{}},
		{name: "defaults to working directory", wantSource: "."},
		{name: "nothing given", takesFirst: true, wantGuide: issue.RootNotFoundId},
		{name: "missing path", args: []string{filepath.Join(dir, "nope")}, takesFirst: true, wantGuide: issue.RootNotFoundId},
		{name: "not a tree", args: []string{notes}, takesFirst: true, wantGuide: issue.RootNotFoundId},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			app, _, _ := newTestApp(nil)
			app.cfg.Root = tt.cfgRoot

			source, rest, err := app.treeSource(tt.rootFlag, tt.args, tt.takesFirst)
			if tt.wantGuide != 0 {
				ae, ok := issue.As(err)
				if !ok || ae.Guide != tt.wantGuide {
					t.Fatalf("treeSource() error = %v, want guide %d", err, tt.wantGuide)
				}
				return
			}
			if err != nil {
				t.Fatalf("treeSource() error = %v", err)
			}
			if source != tt.wantSource {
				t.Errorf("source = %q, want %q", source, tt.wantSource)
			}
			if strings.Join(rest, " ") != strings.Join(tt.wantRest, " ") {
				t.Errorf("rest = %v, want %v", rest, tt.wantRest)
			}
		})
	}
}

func TestStyledRenderer(t *testing.T) {
	t.Parallel()

	hello := &discovery.CommandNode{Path: "hello", Segments: []discovery.Segment{{Value: "hello"}}}
	show := &discovery.CommandNode{
		Path:     "user/[id]/show",
		Segments: []discovery.Segment{{Value: "user"}, {Value: "id", Dynamic: true}, {Value: "show"}},
	}
	r := &styledRenderer{}

	t.Run("program help", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		r.ProgramHelp(&buf, engine.ProgramInfo{Name: "demo", Version: "1.0.0", Commands: []*discovery.CommandNode{hello, show}})
		out := buf.String()
		for _, want := range []string{"demo", "1.0.0", "Usage: demo <command>", "hello", "user [id] show"} {
			if !strings.Contains(out, want) {
				t.Errorf("output %q does not contain %q", out, want)
			}
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		r.UnknownCommand(&buf, "demo", &match.NotFoundError{Path: "helo", Suggestions: []string{"hello"}})
		out := buf.String()
		if !strings.Contains(out, `unknown command "helo"`) || !strings.Contains(out, "Did you mean?") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("validation error", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		res := params.Validate(nil, nil, params.Contract{Fields: []params.Field{{Name: "name", Required: true}}})
		r.Error(&buf, "demo", res.Error)
		out := buf.String()
		if !strings.Contains(out, "invalid parameters: 1 issue") || !strings.Contains(out, "name") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("guides in verbose mode", func(t *testing.T) {
		t.Parallel()
		vr := &styledRenderer{guides: true, guideStyle: "notty"}
		var buf bytes.Buffer
		vr.Error(&buf, "demo", errors.New("script failed"))
		if !strings.Contains(buf.String(), "A handler failed") {
			t.Errorf("output = %q, want the handler guide", buf.String())
		}
	})
}

func TestApp_WatchTree(t *testing.T) {
	t.Parallel()

	app, _, stderr := newTestApp(stubProvider{cfg: config.DefaultConfig()})
	if err := app.initialize(context.Background(), false); err != nil {
		t.Fatalf("initialize() error = %v", err)
	}
	show := func(context.Context) error { return nil }

	manifestPath := filepath.Join(t.TempDir(), "tree.yaml")
	if err := os.WriteFile(manifestPath, []byte("schema_version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := app.watchTree(context.Background(), manifestPath, show); err == nil {
		t.Error("watchTree() on a manifest: want error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := t.TempDir()
	if err := app.watchTree(ctx, root, show); err != nil {
		t.Errorf("watchTree() after cancel error = %v", err)
	}
	if !strings.Contains(stderr.String(), "watching") {
		t.Errorf("stderr = %q, want watching notice", stderr.String())
	}
}
