// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a discovery finding that makes the tree unfit to
	// ship. Scanning still succeeds; `cmdtree check` fails on it.
	SeverityError Severity = "error"
)

const (
	// CodeDirectoryUnreadable reports a directory that could not be listed.
	CodeDirectoryUnreadable DiagnosticCode = "directory_unreadable"
	// CodeRootCommandIgnored reports a command file placed at the scan root.
	CodeRootCommandIgnored DiagnosticCode = "root_command_ignored"
	// CodeOrphanHandler reports a command-scope file in a directory without a command file.
	CodeOrphanHandler DiagnosticCode = "orphan_handler"
	// CodeDuplicateHandlerFile reports two files for the same handler kind in one directory.
	CodeDuplicateHandlerFile DiagnosticCode = "duplicate_handler_file"
	// CodeMetadataParseFailed reports a handler file whose metadata could not be read.
	CodeMetadataParseFailed DiagnosticCode = "metadata_parse_failed"
	// CodeInvalidSegment reports a directory name that cannot be a path segment.
	CodeInvalidSegment DiagnosticCode = "invalid_segment"
	// CodeAliasCollision reports an alias that shadows another command or alias.
	CodeAliasCollision DiagnosticCode = "alias_collision"
	// CodeHandlerDependencyMissing reports a handler whose declared dependency is absent.
	CodeHandlerDependencyMissing DiagnosticCode = "handler_dependency_missing"
)

var (
	// ErrInvalidSeverity is the sentinel error wrapped by InvalidSeverityError.
	ErrInvalidSeverity = errors.New("invalid diagnostic severity")
	// ErrInvalidDiagnosticCode is the sentinel error wrapped by InvalidDiagnosticCodeError.
	ErrInvalidDiagnosticCode = errors.New("invalid diagnostic code")

	knownCodes = []DiagnosticCode{
		CodeDirectoryUnreadable, CodeRootCommandIgnored, CodeOrphanHandler,
		CodeDuplicateHandlerFile, CodeMetadataParseFailed, CodeInvalidSegment,
		CodeAliasCollision, CodeHandlerDependencyMissing,
	}
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// DiagnosticCode is a machine-readable diagnostic identifier.
	DiagnosticCode string

	// InvalidSeverityError is returned when a Severity value is not recognized.
	InvalidSeverityError struct {
		Value Severity
	}

	// InvalidDiagnosticCodeError is returned when a DiagnosticCode is not recognized.
	InvalidDiagnosticCodeError struct {
		Value DiagnosticCode
	}

	// Diagnostic represents a structured discovery diagnostic that is returned
	// to callers (rather than written to stderr) for consistent rendering policy.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity `json:"severity"`
		// Code is a machine-readable identifier (e.g., "orphan_handler").
		Code DiagnosticCode `json:"code"`
		// Message is the human-readable description.
		Message string `json:"message"`
		// Path is the file or directory the diagnostic concerns (optional).
		Path string `json:"path,omitempty"`
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error `json:"-"`
	}
)

// Error implements the error interface.
func (e *InvalidSeverityError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidSeverity, e.Value)
}

// Unwrap returns ErrInvalidSeverity for errors.Is() compatibility.
func (e *InvalidSeverityError) Unwrap() error { return ErrInvalidSeverity }

// Error implements the error interface.
func (e *InvalidDiagnosticCodeError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidDiagnosticCode, e.Value)
}

// Unwrap returns ErrInvalidDiagnosticCode for errors.Is() compatibility.
func (e *InvalidDiagnosticCodeError) Unwrap() error { return ErrInvalidDiagnosticCode }

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() (bool, []error) {
	switch s {
	case SeverityWarning, SeverityError:
		return true, nil
	default:
		return false, []error{&InvalidSeverityError{Value: s}}
	}
}

// String returns the code text.
func (c DiagnosticCode) String() string { return string(c) }

// IsValid reports whether c is one of the codes the scanner emits.
func (c DiagnosticCode) IsValid() (bool, []error) {
	if slices.Contains(knownCodes, c) {
		return true, nil
	}
	return false, []error{&InvalidDiagnosticCodeError{Value: c}}
}

// NewDiagnostic creates a diagnostic without a path or cause.
func NewDiagnostic(severity Severity, code DiagnosticCode, message string) Diagnostic {
	return Diagnostic{Severity: severity, Code: code, Message: message}
}

// NewDiagnosticWithPath creates a diagnostic tied to a file or directory.
func NewDiagnosticWithPath(severity Severity, code DiagnosticCode, message, path string) Diagnostic {
	return Diagnostic{Severity: severity, Code: code, Message: message, Path: path}
}

// NewDiagnosticWithCause creates a diagnostic carrying the underlying error.
func NewDiagnosticWithCause(severity Severity, code DiagnosticCode, message, path string, cause error) Diagnostic {
	return Diagnostic{Severity: severity, Code: code, Message: message, Path: path, Cause: cause}
}

// String renders "<severity> [<code>] <path>: <message>".
func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", d.Severity, d.Code, d.Path, d.Message)
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	return slices.ContainsFunc(diags, func(d Diagnostic) bool { return d.Severity == SeverityError })
}

// sortDiagnostics orders diagnostics by path, then code, then message so that
// sequential and parallel scans report identically.
func sortDiagnostics(diags []Diagnostic) {
	slices.SortStableFunc(diags, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.Code, b.Code),
			cmp.Compare(a.Message, b.Message),
		)
	})
}
