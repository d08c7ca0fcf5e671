// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"testing"
)

func TestSeverity_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity Severity
		want     bool
	}{
		{SeverityWarning, true},
		{SeverityError, true},
		{"", false},
		{"WARNING", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.severity.IsValid()
			if isValid != tt.want {
				t.Errorf("Severity(%q).IsValid() = %v, want %v", tt.severity, isValid, tt.want)
			}
			if !tt.want {
				if len(errs) == 0 {
					t.Fatalf("Severity(%q).IsValid() returned no errors", tt.severity)
				}
				if !errors.Is(errs[0], ErrInvalidSeverity) {
					t.Errorf("error should wrap ErrInvalidSeverity, got: %v", errs[0])
				}
			} else if len(errs) > 0 {
				t.Errorf("unexpected errors: %v", errs)
			}
		})
	}
}

func TestDiagnosticCode_IsValid(t *testing.T) {
	t.Parallel()

	for _, code := range knownCodes {
		if ok, errs := code.IsValid(); !ok || len(errs) > 0 {
			t.Errorf("DiagnosticCode(%q).IsValid() = %v, %v", code, ok, errs)
		}
	}

	for _, code := range []DiagnosticCode{"", "invalid", "ORPHAN_HANDLER"} {
		ok, errs := code.IsValid()
		if ok {
			t.Errorf("DiagnosticCode(%q).IsValid() = true", code)
		}
		if len(errs) == 0 || !errors.Is(errs[0], ErrInvalidDiagnosticCode) {
			t.Errorf("DiagnosticCode(%q) errors = %v", code, errs)
		}
	}
}

func TestNewDiagnosticWithCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")
	d := NewDiagnosticWithCause(SeverityError, CodeDirectoryUnreadable, "scan failed", "/some/dir", cause)

	if d.Severity != SeverityError || d.Code != CodeDirectoryUnreadable || d.Path != "/some/dir" {
		t.Errorf("unexpected diagnostic: %+v", d)
	}
	if !errors.Is(d.Cause, cause) {
		t.Errorf("Cause = %v, want %v", d.Cause, cause)
	}
	if got, want := d.String(), "error [directory_unreadable] /some/dir: scan failed"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := NewDiagnostic(SeverityWarning, CodeOrphanHandler, "m").String(), "warning [orphan_handler] m"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSortDiagnostics(t *testing.T) {
	t.Parallel()

	diags := []Diagnostic{
		NewDiagnosticWithPath(SeverityWarning, CodeOrphanHandler, "b", "/z"),
		NewDiagnosticWithPath(SeverityWarning, CodeOrphanHandler, "a", "/a"),
		NewDiagnosticWithPath(SeverityError, CodeAliasCollision, "c", "/a"),
	}
	sortDiagnostics(diags)

	if diags[0].Code != CodeAliasCollision || diags[1].Code != CodeOrphanHandler || diags[2].Path != "/z" {
		t.Errorf("unexpected order: %v", diags)
	}
	if !HasErrors(diags) || HasErrors(diags[1:]) {
		t.Error("HasErrors misreports severity")
	}
}
