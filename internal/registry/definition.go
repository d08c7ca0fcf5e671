// SPDX-License-Identifier: MPL-2.0

package registry

const (
	// KindGlobalError is the process-wide fallback error handler.
	KindGlobalError Kind = "global-error"
	// KindEnv validates and exposes environment variables.
	KindEnv Kind = "env"
	// KindVersion declares the program version.
	KindVersion Kind = "version"
	// KindMiddleware wraps the command call.
	KindMiddleware Kind = "middleware"
	// KindHelp provides help text for one command.
	KindHelp Kind = "help"
	// KindParams declares the parameter contract for one command.
	KindParams Kind = "params"
	// KindCommand is the command body. It is the only required handler.
	KindCommand Kind = "command"
	// KindError is the command-scoped error handler.
	KindError Kind = "error"

	// ScopeGlobal handlers live at the scan root and apply once per process.
	ScopeGlobal Scope = "global"
	// ScopeCommand handlers live next to a command file and apply to that command only.
	ScopeCommand Scope = "command"
	// ScopeAll selects both scopes in List.
	ScopeAll Scope = "all"
)

// Execution order bands. Gaps leave room for new kinds between existing ones.
const (
	OrderGlobalError = 0
	OrderEnv         = 100
	OrderVersion     = 200
	OrderMiddleware  = 300
	OrderHelp        = 400
	OrderParams      = 500
	OrderCommand     = 1000
	OrderError       = 1100
)

type (
	// Kind names a handler kind (e.g. "env", "command").
	Kind string

	// Scope tells whether a handler applies to the whole program or to one command.
	Scope string

	// Definition describes one handler kind. Definitions are values; the catalog
	// hands out copies so callers cannot mutate the registry.
	Definition struct {
		// Kind is the unique handler name.
		Kind Kind `json:"kind" yaml:"kind" toml:"kind"`
		// FileName is the base name (without extension) the scanner looks for.
		FileName string `json:"file_name" yaml:"file_name" toml:"file_name"`
		// Scope is global or command.
		Scope Scope `json:"scope" yaml:"scope" toml:"scope"`
		// Order is the execution rank; lower runs first.
		Order int `json:"order" yaml:"order" toml:"order"`
		// Required marks the handler every command must have.
		Required bool `json:"required" yaml:"required" toml:"required"`
		// Dependencies lists kinds that must be present whenever this kind is.
		Dependencies []Kind `json:"dependencies,omitempty" yaml:"dependencies,omitempty" toml:"dependencies,omitempty"`
		// Description is a one-line summary for listings.
		Description string `json:"description" yaml:"description" toml:"description"`
	}
)

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// String returns the scope name.
func (s Scope) String() string { return string(s) }

// IsValid reports whether the scope is one a Definition may carry.
func (s Scope) IsValid() bool {
	return s == ScopeGlobal || s == ScopeCommand
}

// DependsOn reports whether the definition declares a dependency on kind.
func (d Definition) DependsOn(kind Kind) bool {
	for _, dep := range d.Dependencies {
		if dep == kind {
			return true
		}
	}
	return false
}

func (d Definition) clone() Definition {
	if d.Dependencies != nil {
		d.Dependencies = append([]Kind(nil), d.Dependencies...)
	}
	return d
}

// defaultDefinitions is the built-in handler table. It is only read through
// Default(), which copies it into an immutable Catalog.
func defaultDefinitions() []Definition {
	return []Definition{
		{
			Kind:        KindGlobalError,
			FileName:    "error",
			Scope:       ScopeGlobal,
			Order:       OrderGlobalError,
			Description: "Fallback error handler for every command",
		},
		{
			Kind:        KindEnv,
			FileName:    "env",
			Scope:       ScopeGlobal,
			Order:       OrderEnv,
			Description: "Validates environment variables before any command runs",
		},
		{
			Kind:        KindVersion,
			FileName:    "version",
			Scope:       ScopeGlobal,
			Order:       OrderVersion,
			Description: "Declares the program version printed by --version",
		},
		{
			Kind:        KindMiddleware,
			FileName:    "middleware",
			Scope:       ScopeGlobal,
			Order:       OrderMiddleware,
			Description: "Wraps every command invocation",
		},
		{
			Kind:        KindHelp,
			FileName:    "help",
			Scope:       ScopeCommand,
			Order:       OrderHelp,
			Description: "Help text printed by --help",
		},
		{
			Kind:        KindParams,
			FileName:    "params",
			Scope:       ScopeCommand,
			Order:       OrderParams,
			Description: "Parameter mapping and schema",
		},
		{
			Kind:        KindCommand,
			FileName:    "command",
			Scope:       ScopeCommand,
			Order:       OrderCommand,
			Required:    true,
			Description: "Command implementation",
		},
		{
			Kind:         KindError,
			FileName:     "error",
			Scope:        ScopeCommand,
			Order:        OrderError,
			Dependencies: []Kind{KindCommand},
			Description:  "Error handler for this command",
		},
	}
}
