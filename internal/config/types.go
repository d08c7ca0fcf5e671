// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal background.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces the dark palette.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces the light palette.
	ColorSchemeLight ColorScheme = "light"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	LogFormatText   LogFormat = "text"
	LogFormatJSON   LogFormat = "json"
	LogFormatLogfmt LogFormat = "logfmt"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidScanConfig is the sentinel error wrapped by InvalidScanConfigError.
	ErrInvalidScanConfig = errors.New("invalid scan config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme is the terminal palette preference.
	ColorScheme string

	// LogLevel is the minimum level logged.
	LogLevel string

	// LogFormat selects the log line encoding.
	LogFormat string

	// InvalidValueError reports an unrecognized enum value. It wraps the
	// sentinel of its type.
	InvalidValueError struct {
		Value    string
		Sentinel error
	}

	// InvalidScanConfigError lists the problems of a ScanConfig.
	InvalidScanConfigError struct {
		Problems []string
	}

	// InvalidConfigError collects every field error of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the complete cmdtree configuration.
	Config struct {
		// Root is the default command tree directory or manifest file.
		Root string `json:"root" mapstructure:"root"`
		// Program sets the name and version shown in help.
		Program ProgramConfig `json:"program" mapstructure:"program"`
		// Scan tunes discovery.
		Scan ScanConfig `json:"scan" mapstructure:"scan"`
		// Log configures the process logger.
		Log LogConfig `json:"log" mapstructure:"log"`
		// UI configures presentation.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// ProgramConfig names the program whose tree is dispatched.
	ProgramConfig struct {
		Name    string `json:"name" mapstructure:"name"`
		Version string `json:"version" mapstructure:"version"`
	}

	// ScanConfig tunes discovery.
	ScanConfig struct {
		// Parallel scans sibling directories concurrently.
		Parallel bool `json:"parallel" mapstructure:"parallel"`
		// Concurrency bounds parallel scanning; 0 means GOMAXPROCS.
		Concurrency int `json:"concurrency" mapstructure:"concurrency"`
		// Extensions are the handler file extensions in priority order.
		Extensions []string `json:"extensions" mapstructure:"extensions"`
	}

	// LogConfig configures the process logger.
	LogConfig struct {
		Level  LogLevel  `json:"level" mapstructure:"level"`
		Format LogFormat `json:"format" mapstructure:"format"`
	}

	// UIConfig configures presentation.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose prints full error chains and guides.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Program: ProgramConfig{Name: AppName},
		Scan: ScanConfig{
			Parallel:   true,
			Extensions: []string{".cue", ".go"},
		},
		Log: LogConfig{
			Level:  LogLevelWarn,
			Format: LogFormatText,
		},
		UI: UIConfig{ColorScheme: ColorSchemeAuto},
	}
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s: %q", e.Sentinel, e.Value)
}

// Unwrap returns the sentinel for errors.Is() compatibility.
func (e *InvalidValueError) Unwrap() error { return e.Sentinel }

// IsValid reports whether cs is a known scheme.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidValueError{Value: string(cs), Sentinel: ErrInvalidColorScheme}}
	}
}

// IsValid reports whether l is a known level.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidValueError{Value: string(l), Sentinel: ErrInvalidLogLevel}}
	}
}

// IsValid reports whether f is a known format.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return true, nil
	default:
		return false, []error{&InvalidValueError{Value: string(f), Sentinel: ErrInvalidLogFormat}}
	}
}

// IsValid checks the concurrency bound and the extension list.
func (c ScanConfig) IsValid() (bool, []error) {
	var problems []string
	if c.Concurrency < 0 {
		problems = append(problems, fmt.Sprintf("concurrency must not be negative, got %d", c.Concurrency))
	}
	if len(c.Extensions) == 0 {
		problems = append(problems, "at least one extension is required")
	}
	seen := map[string]bool{}
	for _, ext := range c.Extensions {
		norm := "." + strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if norm == "." {
			problems = append(problems, "extensions must not be empty")
			continue
		}
		if seen[norm] {
			problems = append(problems, fmt.Sprintf("duplicate extension %q", norm))
		}
		seen[norm] = true
	}
	if len(problems) > 0 {
		return false, []error{&InvalidScanConfigError{Problems: problems}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidScanConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidScanConfig, strings.Join(e.Problems, "; "))
}

// Unwrap returns ErrInvalidScanConfig for errors.Is() compatibility.
func (e *InvalidScanConfigError) Unwrap() error { return ErrInvalidScanConfig }

// IsValid validates every enum and the scan settings.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	for _, check := range []func() (bool, []error){
		c.Scan.IsValid,
		c.Log.Level.IsValid,
		c.Log.Format.IsValid,
		c.UI.ColorScheme.IsValid,
	} {
		if ok, fieldErrs := check(); !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	if strings.TrimSpace(c.Program.Name) == "" {
		errs = append(errs, errors.New("program.name must not be empty"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
