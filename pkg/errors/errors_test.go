// pkg/errors/errors_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test error creation, wrapping, and code matching

package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"touchctl/pkg/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "device_not_found_error",
			code:    errors.ErrDeviceNotFound,
			message: "no matching device",
			wantStr: "[DEVICE_NOT_FOUND] no matching device",
		},
		{
			name:    "invalid_input_error",
			code:    errors.ErrInvalidInput,
			message: "bad parameter set",
			wantStr: "[INVALID_INPUT] bad parameter set",
		},
		{
			name:    "not_applicable_error",
			code:    errors.ErrNotApplicable,
			message: "no system key",
			wantStr: "[NOT_APPLICABLE] no system key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)

			if err.Code != tt.code {
				t.Errorf("New() code = %v, want %v", err.Code, tt.code)
			}

			if err.Message != tt.message {
				t.Errorf("New() message = %q, want %q", err.Message, tt.message)
			}

			if err.Details == nil {
				t.Error("New() details should be initialized")
			}

			if got := err.Error(); got != tt.wantStr {
				t.Errorf("Error() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("exit status 5")
	err := errors.Wrap(inner, errors.ErrRegPermission, "registry write failed")

	if !stderrors.Is(err, inner) {
		t.Error("Wrap() should preserve the wrapped error for errors.Is")
	}

	want := "[REG_PERMISSION] registry write failed: exit status 5"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if errors.Wrap(nil, errors.ErrInternal, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	a := errors.New(errors.ErrUserAborted, "elevation cancelled")
	b := errors.Newf(errors.ErrUserAborted, "cancelled at %s", "prompt")

	if !stderrors.Is(a, b) {
		t.Error("errors with the same code should match via errors.Is")
	}

	c := errors.New(errors.ErrAccessDenied, "denied")
	if stderrors.Is(a, c) {
		t.Error("errors with different codes should not match")
	}
}

func TestIsErrorCode(t *testing.T) {
	err := errors.Wrapf(fmt.Errorf("inner"), errors.ErrRegNotFound, "value %q missing", "TouchGate")

	if !errors.IsErrorCode(err, errors.ErrRegNotFound) {
		t.Error("IsErrorCode should match the error's code")
	}
	if errors.IsErrorCode(err, errors.ErrRegExists) {
		t.Error("IsErrorCode should not match a different code")
	}
	if errors.IsErrorCode(fmt.Errorf("plain"), errors.ErrRegNotFound) {
		t.Error("IsErrorCode should not match plain errors")
	}

	// wrapped AppError is still found through fmt wrapping
	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.IsErrorCode(wrapped, errors.ErrRegNotFound) {
		t.Error("IsErrorCode should unwrap through fmt.Errorf")
	}
}

func TestGetErrorCode(t *testing.T) {
	if got := errors.GetErrorCode(errors.New(errors.ErrPowershellDisabled, "blocked")); got != errors.ErrPowershellDisabled {
		t.Errorf("GetErrorCode() = %v, want %v", got, errors.ErrPowershellDisabled)
	}
	if got := errors.GetErrorCode(fmt.Errorf("plain")); got != errors.ErrUnknown {
		t.Errorf("GetErrorCode(plain) = %v, want %v", got, errors.ErrUnknown)
	}
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.ErrDeviceNotFound, "not found").
		WithDetail("matches", 0).
		WithDetail("device", "touchscreen")

	if err.Details["matches"] != 0 || err.Details["device"] != "touchscreen" {
		t.Errorf("WithDetail() details = %v", err.Details)
	}
}
