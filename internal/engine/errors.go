// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"

	"github.com/cmdtree/cmdtree/internal/registry"
)

var (
	// ErrHandler is the sentinel error wrapped by HandlerError.
	ErrHandler = errors.New("handler failed")
	// ErrKindMismatch is returned when a loaded handler is not the kind its
	// file name declares.
	ErrKindMismatch = errors.New("handler kind mismatch")
	// ErrHandlerNotFound is returned by loaders that have no handler for a file.
	ErrHandlerNotFound = errors.New("handler not found")
	// ErrErrorHandlerFailed is the sentinel error wrapped by FatalError.
	ErrErrorHandlerFailed = errors.New("error handler failed")
)

type (
	// ExitCoder is implemented by errors that carry a process exit code.
	ExitCoder interface {
		ExitCode() int
	}

	// HandlerError wraps a failure raised while loading or running a handler.
	// It matches both ErrHandler and the underlying error with errors.Is/As.
	HandlerError struct {
		Kind registry.Kind
		File string
		Err  error
	}

	// KindMismatchError reports a handler file whose loaded value has the
	// wrong kind. It wraps ErrKindMismatch.
	KindMismatchError struct {
		File string
		Want registry.Kind
		Got  registry.Kind
	}

	// PanicError is a recovered panic.
	PanicError struct {
		Value any
	}

	// HandledError is returned by an error handler that handled the failure
	// but wants the process to exit with Code.
	HandledError struct {
		Code int
	}

	// FatalError reports an error handler that failed while handling Original.
	FatalError struct {
		Original error
		Err      error
	}
)

// Error implements the error interface.
func (e *HandlerError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s handler: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s handler (%s): %v", e.Kind, e.File, e.Err)
}

// Unwrap returns both ErrHandler and the wrapped error.
func (e *HandlerError) Unwrap() []error { return []error{ErrHandler, e.Err} }

// Error implements the error interface.
func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("%s: %s holds a %s handler, want %s", ErrKindMismatch, e.File, e.Got, e.Want)
}

// Unwrap returns ErrKindMismatch for errors.Is() compatibility.
func (e *KindMismatchError) Unwrap() error { return ErrKindMismatch }

// Error implements the error interface.
func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("%v (%s: %v)", e.Original, ErrErrorHandlerFailed, e.Err)
}

// Unwrap returns ErrErrorHandlerFailed and both underlying errors.
func (e *FatalError) Unwrap() []error {
	return []error{ErrErrorHandlerFailed, e.Original, e.Err}
}

// Handled returns a HandledError for code.
func Handled(code int) error { return &HandledError{Code: code} }

// Error implements the error interface.
func (e *HandledError) Error() string { return fmt.Sprintf("handled with exit code %d", e.Code) }

// ExitCode returns Code.
func (e *HandledError) ExitCode() int { return e.Code }

// ExitCode returns the exit code carried by err, or 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder ExitCoder
	if errors.As(err, &coder) && coder.ExitCode() != 0 {
		return coder.ExitCode()
	}
	return 1
}

// wrapHandler attributes err to a handler unless it is already attributed.
func wrapHandler(kind registry.Kind, file string, err error) error {
	if err == nil {
		return nil
	}
	var he *HandlerError
	if errors.As(err, &he) {
		return err
	}
	return &HandlerError{Kind: kind, File: file, Err: err}
}
