// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/format"

	"github.com/cmdtree/cmdtree/internal/discovery"
	"github.com/cmdtree/cmdtree/internal/engine"
	"github.com/cmdtree/cmdtree/internal/params"
	"github.com/cmdtree/cmdtree/internal/registry"
	"github.com/cmdtree/cmdtree/internal/runtime"
	"github.com/cmdtree/cmdtree/pkg/cueutil"
)

//go:embed handler_schema.cue
var schemaBytes []byte

// ErrEnv is the sentinel error wrapped by EnvError.
var ErrEnv = errors.New("invalid environment")

type (
	// CUELoader loads declarative .cue handler files.
	CUELoader struct {
		shell  *runtime.Shell
		logger *slog.Logger
	}

	// CUEOption configures a CUELoader.
	CUEOption func(*CUELoader)

	// EnvError lists every declared variable that failed its checks.
	EnvError struct {
		Problems []string
	}

	commandFile struct {
		Run string `json:"run"`
		Dir string `json:"dir"`
	}

	paramsFile struct {
		Fields []params.Field `json:"fields"`
	}

	helpFile struct {
		Text string `json:"text"`
	}

	errorFile struct {
		Message  string `json:"message"`
		Run      string `json:"run"`
		ExitCode *int   `json:"exitCode"`
	}

	envVar struct {
		Required bool    `json:"required"`
		Default  *string `json:"default"`
		Pattern  string  `json:"pattern"`
	}

	envFile struct {
		Vars  map[string]envVar `json:"vars"`
		Files []string          `json:"files"`
	}

	versionFile struct {
		Version string `json:"version"`
	}

	middlewareFile struct {
		Before string `json:"before"`
		After  string `json:"after"`
	}
)

// WithShell sets the shell that runs scripts.
func WithShell(s *runtime.Shell) CUEOption {
	return func(l *CUELoader) { l.shell = s }
}

// WithCUELogger sets the logger.
func WithCUELogger(logger *slog.Logger) CUEOption {
	return func(l *CUELoader) { l.logger = logger }
}

// NewCUELoader creates a CUELoader.
func NewCUELoader(opts ...CUEOption) *CUELoader {
	l := &CUELoader{logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	if l.shell == nil {
		l.shell = runtime.NewShell(runtime.WithLogger(l.logger))
	}
	return l
}

// Error implements the error interface.
func (e *EnvError) Error() string {
	return fmt.Sprintf("%s: %s", ErrEnv, strings.Join(e.Problems, "; "))
}

// Unwrap returns ErrEnv for errors.Is() compatibility.
func (e *EnvError) Unwrap() error { return ErrEnv }

// Load implements engine.Loader.
func (l *CUELoader) Load(ctx context.Context, entry discovery.HandlerEntry) (engine.Handler, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := entry.FilePath

	switch entry.Definition.Kind {
	case registry.KindCommand:
		f, err := decode[commandFile](path, "#Command")
		if err != nil {
			return nil, err
		}
		if err := l.shell.Check(f.Run, path); err != nil {
			return nil, err
		}
		dir := filepath.Dir(path)
		if f.Dir != "" {
			dir = filepath.Join(dir, filepath.FromSlash(f.Dir))
		}
		return engine.Command(func(ctx context.Context, c *engine.Context) error {
			return l.run(ctx, c, path, f.Run, dir, nil)
		}), nil

	case registry.KindParams:
		return l.loadParams(path)

	case registry.KindHelp:
		f, err := decode[helpFile](path, "#Help")
		if err != nil {
			return nil, err
		}
		return engine.Help(f.Text), nil

	case registry.KindError:
		fn, err := l.loadError(path)
		if err != nil {
			return nil, err
		}
		return engine.OnError(fn), nil

	case registry.KindGlobalError:
		fn, err := l.loadError(path)
		if err != nil {
			return nil, err
		}
		return engine.OnAnyError(fn), nil

	case registry.KindEnv:
		return l.loadEnv(path)

	case registry.KindVersion:
		f, err := decode[versionFile](path, "#Version")
		if err != nil {
			return nil, err
		}
		return engine.Version(f.Version), nil

	case registry.KindMiddleware:
		return l.loadMiddleware(path)

	default:
		return nil, fmt.Errorf("%w: no declarative form for %s handlers (%s)", engine.ErrHandlerNotFound, entry.Definition.Kind, path)
	}
}

func (l *CUELoader) loadParams(path string) (engine.Handler, error) {
	res, err := cueutil.DecodeFile[paramsFile](path, schemaBytes, "#Params", cueutil.WithConcrete(false))
	if err != nil {
		return nil, err
	}
	contract := params.Contract{Fields: res.Value.Fields}
	if err := contract.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if block := res.Unified.LookupPath(cue.ParsePath("schema")); block.Exists() {
		src, err := format.Node(block.Syntax())
		if err != nil {
			return nil, fmt.Errorf("%s: failed to format parameter schema: %w", path, err)
		}
		schema, err := params.NewCUESchema(src, path+"#schema")
		if err != nil {
			return nil, err
		}
		contract.Schema = schema
	}
	return engine.Params(contract), nil
}

func (l *CUELoader) loadError(path string) (engine.ErrorFunc, error) {
	f, err := decode[errorFile](path, "#Error")
	if err != nil {
		return nil, err
	}
	if f.Run != "" {
		if err := l.shell.Check(f.Run, path); err != nil {
			return nil, err
		}
	}

	return func(ctx context.Context, c *engine.Context, cause error) error {
		if f.Message != "" {
			msg := strings.NewReplacer("${error}", cause.Error(), "${command}", engine.DisplayPath(c.CommandPath)).Replace(f.Message)
			fmt.Fprintln(c.Stderr, msg)
		}
		if f.Run != "" {
			err := l.run(ctx, c, path, f.Run, filepath.Dir(path), map[string]string{runtime.EnvError: cause.Error()})
			var exit *runtime.ExitError
			if errors.As(err, &exit) && f.ExitCode == nil {
				return engine.Handled(exit.ExitCode())
			}
			if err != nil && exit == nil {
				return err
			}
		}
		if f.ExitCode != nil {
			return engine.Handled(*f.ExitCode)
		}
		return nil
	}, nil
}

func (l *CUELoader) loadEnv(path string) (engine.Handler, error) {
	f, err := decode[envFile](path, "#Env")
	if err != nil {
		return nil, err
	}
	patterns := make(map[string]*regexp.Regexp, len(f.Vars))
	for name, v := range f.Vars {
		if v.Pattern == "" {
			continue
		}
		re, err := regexp.Compile("^(?:" + v.Pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("%s: vars.%s.pattern: %w", path, name, err)
		}
		patterns[name] = re
	}
	baseDir := filepath.Dir(path)

	provide := func(_ context.Context, c *engine.Context) (map[string]string, error) {
		out := map[string]string{}
		for _, file := range f.Files {
			if err := runtime.LoadEnvFile(out, file, baseDir); err != nil {
				return nil, err
			}
		}

		var problems []string
		for _, name := range slices.Sorted(maps.Keys(f.Vars)) {
			v := f.Vars[name]
			value, ok := c.RawEnv[name]
			if !ok {
				value, ok = out[name]
			}
			if !ok && v.Default != nil {
				value, ok = *v.Default, true
			}
			switch {
			case !ok && v.Required:
				problems = append(problems, fmt.Sprintf("%s is required", name))
				continue
			case !ok:
				continue
			}
			if re := patterns[name]; re != nil && !re.MatchString(value) {
				problems = append(problems, fmt.Sprintf("%s does not match %q", name, f.Vars[name].Pattern))
				continue
			}
			out[name] = value
		}
		if len(problems) > 0 {
			return nil, &EnvError{Problems: problems}
		}
		return out, nil
	}
	return &engine.EnvHandler{Provide: engine.Factory(provide)}, nil
}

func (l *CUELoader) loadMiddleware(path string) (engine.Handler, error) {
	f, err := decode[middlewareFile](path, "#Middleware")
	if err != nil {
		return nil, err
	}
	for _, script := range []string{f.Before, f.After} {
		if script == "" {
			continue
		}
		if err := l.shell.Check(script, path); err != nil {
			return nil, err
		}
	}
	dir := filepath.Dir(path)

	mw := func(ctx context.Context, c *engine.Context, next func(context.Context) error) error {
		if f.Before != "" {
			if err := l.run(ctx, c, path, f.Before, dir, nil); err != nil {
				return err
			}
		}
		err := next(ctx)
		if f.After != "" {
			if afterErr := l.run(ctx, c, path, f.After, dir, nil); afterErr != nil && err == nil {
				return afterErr
			}
		}
		return err
	}
	return engine.Use(mw), nil
}

// run executes one script with the invocation's environment.
func (l *CUELoader) run(ctx context.Context, c *engine.Context, path, source, dir string, extra map[string]string) error {
	env := ScriptEnv(c).Merge(extra)
	res := l.shell.Run(ctx, runtime.Script{
		Name:   path,
		Source: source,
		Dir:    dir,
		Env:    env.Build(),
		Args:   c.Args,
		Stdin:  c.Stdin,
		Stdout: c.Stdout,
		Stderr: c.Stderr,
	})
	return res.Err(path)
}

// ScriptEnv builds the environment a script sees for c: the process
// environment, the env handler's output and the CMDTREE_* variables.
func ScriptEnv(c *engine.Context) *runtime.EnvBuilder {
	b := runtime.NewEnvBuilder(c.RawEnv).
		Merge(c.Env).
		Set(runtime.EnvCommand, c.CommandPath).
		Set(runtime.EnvInvocationID, c.InvocationID).
		Prefixed(runtime.EnvParamPrefix, c.Params).
		Prefixed(runtime.EnvOptPrefix, c.Options).
		Values(runtime.EnvVarPrefix, c.ValidatedData)
	if c.Version != "" {
		b.Set(runtime.EnvVersion, c.Version)
	}
	return b
}

func decode[T any](path, definition string) (*T, error) {
	res, err := cueutil.DecodeFile[T](path, schemaBytes, definition)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}
