// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/cmdtree/cmdtree/internal/issue"
)

// load resolves config with an empty config dir unless opts names one.
func load(t *testing.T, opts LoadOptions) (*Config, string, error) {
	t.Helper()
	if opts.ConfigDirPath == "" && opts.ConfigFilePath == "" {
		opts.ConfigDirPath = t.TempDir()
	}
	if opts.Environ == nil {
		opts.Environ = []string{}
	}
	return Resolve(context.Background(), opts)
}

func writeConfig(t *testing.T, content string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "config.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Program.Name != "cmdtree" {
		t.Errorf("Program.Name = %q", cfg.Program.Name)
	}
	if !cfg.Scan.Parallel || cfg.Scan.Concurrency != 0 {
		t.Errorf("Scan = %+v", cfg.Scan)
	}
	if !slices.Equal(cfg.Scan.Extensions, []string{".cue", ".go"}) {
		t.Errorf("Scan.Extensions = %v", cfg.Scan.Extensions)
	}
	if cfg.Log.Level != LogLevelWarn || cfg.Log.Format != LogFormatText {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto || cfg.UI.Verbose {
		t.Errorf("UI = %+v", cfg.UI)
	}
	if ok, errs := cfg.IsValid(); !ok {
		t.Errorf("DefaultConfig().IsValid() = %v", errs)
	}
}

func TestResolve_NoFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := load(t, LoadOptions{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if cfg.Program.Name != AppName || cfg.Log.Level != LogLevelWarn {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestResolve_FromConfigDir(t *testing.T) {
	t.Parallel()

	dir, path := writeConfig(t, `
root: "commands"
program: {name: "acme", version: "1.2.3"}
scan: {parallel: false, concurrency: 4, extensions: [".cue"]}
log: {level: "debug", format: "json"}
ui: verbose: true
`)

	cfg, got, err := load(t, LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
	if cfg.Root != filepath.Join(dir, "commands") {
		t.Errorf("Root = %q, want it resolved against the config dir", cfg.Root)
	}
	if cfg.Program.Name != "acme" || cfg.Program.Version != "1.2.3" {
		t.Errorf("Program = %+v", cfg.Program)
	}
	if cfg.Scan.Parallel || cfg.Scan.Concurrency != 4 || !slices.Equal(cfg.Scan.Extensions, []string{".cue"}) {
		t.Errorf("Scan = %+v", cfg.Scan)
	}
	if cfg.Log.Level != LogLevelDebug || cfg.Log.Format != LogFormatJSON {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if !cfg.UI.Verbose || cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("UI = %+v, want verbose with the default scheme", cfg.UI)
	}
}

func TestResolve_EnvOverrides(t *testing.T) {
	t.Parallel()

	dir, _ := writeConfig(t, `log: level: "debug"`)
	cfg, _, err := load(t, LoadOptions{
		ConfigDirPath: dir,
		Environ: []string{
			"CMDTREE_LOG_LEVEL=error",
			"CMDTREE_SCAN_PARALLEL=false",
			"CMDTREE_SCAN_EXTENSIONS=.cue,.go,.lua",
			"CMDTREE_ROOT=/srv/commands",
			"CMDTREE_UNKNOWN=ignored",
		},
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Log.Level != LogLevelError {
		t.Errorf("Log.Level = %q, want env to win over the file", cfg.Log.Level)
	}
	if cfg.Scan.Parallel {
		t.Error("Scan.Parallel = true")
	}
	if !slices.Equal(cfg.Scan.Extensions, []string{".cue", ".go", ".lua"}) {
		t.Errorf("Scan.Extensions = %v", cfg.Scan.Extensions)
	}
	if cfg.Root != "/srv/commands" {
		t.Errorf("Root = %q", cfg.Root)
	}
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		environ []string
		want    string
	}{
		{name: "syntax", content: "log: {", want: "load configuration"},
		{name: "unknown key", content: "colour: 1", want: "colour"},
		{name: "bad enum", content: `log: level: "loud"`, want: "level"},
		{name: "negative concurrency", content: "scan: concurrency: -1", want: "concurrency"},
		{name: "invalid env value", content: "", environ: []string{"CMDTREE_LOG_FORMAT=xml"}, want: `invalid log format: "xml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir, _ := writeConfig(t, tt.content)
			_, _, err := load(t, LoadOptions{ConfigDirPath: dir, Environ: tt.environ})
			if err == nil {
				t.Fatal("Resolve() error = nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
			ae, ok := issue.As(err)
			if !ok {
				t.Fatalf("error is %T, want *issue.ActionableError", err)
			}
			if ae.Guide != issue.ConfigLoadFailedId {
				t.Errorf("Guide = %d", ae.Guide)
			}
		})
	}
}

func TestResolve_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	_, _, err := load(t, LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}
}

func TestResolve_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Resolve(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	want := DefaultConfig()
	want.Root = "/srv/commands"
	want.Program.Version = "9.9.9"
	want.Log.Format = LogFormatLogfmt

	_, path := writeConfig(t, GenerateCUE(want))
	got, _, err := load(t, LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Resolve() error = %v\n%s", err, GenerateCUE(want))
	}
	if got.Root != want.Root || got.Program != want.Program || got.Log != want.Log || got.UI != want.UI {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
	if !slices.Equal(got.Scan.Extensions, want.Scan.Extensions) {
		t.Errorf("Scan.Extensions = %v", got.Scan.Extensions)
	}
}

func TestEnvName(t *testing.T) {
	t.Parallel()

	if got := EnvName("ui.color_scheme"); got != "CMDTREE_UI_COLOR_SCHEME" {
		t.Errorf("EnvName() = %q", got)
	}
	for _, key := range Keys() {
		if !strings.HasPrefix(EnvName(key), EnvPrefix+"_") {
			t.Errorf("EnvName(%q) = %q", key, EnvName(key))
		}
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("path = %q", path)
	}
	if err := os.WriteFile(path, []byte("ui: verbose: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDefaultConfig(); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "ui: verbose: true\n" {
		t.Error("CreateDefaultConfig() overwrote an existing file")
	}

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{Environ: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.UI.Verbose {
		t.Error("Provider did not read the file in the overridden config dir")
	}
}
