// SPDX-License-Identifier: MPL-2.0

package runtime

// Result is the outcome of one script run. Error is set for failures that
// are not a plain non-zero exit: parse errors, cancellation, interpreter setup.
type Result struct {
	ExitCode ExitCode
	Error    error
	// Output and ErrOutput are only filled by Shell.Capture.
	Output    string
	ErrOutput string
}

// Success reports whether the script exited zero without an error.
func (r *Result) Success() bool {
	return r.ExitCode == 0 && r.Error == nil
}

// Err converts r into an error: Error if set, an *ExitError for a non-zero
// status, else nil.
func (r *Result) Err(script string) error {
	switch {
	case r.Error != nil:
		return r.Error
	case r.ExitCode != 0:
		return &ExitError{Script: script, Code: r.ExitCode}
	default:
		return nil
	}
}
