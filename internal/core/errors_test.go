package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestCommandErrorMessage(t *testing.T) {
	cause := errors.New("boom")
	err := NewCommandError("play", ErrNetwork, cause)

	want := "play: network: boom"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if !errors.Is(err, cause) {
		t.Error("Unwrap() should expose the cause")
	}

	bare := &CommandError{Op: "pause", Kind: ErrAuth}
	if bare.Error() != "pause: authentication" {
		t.Errorf("Error() without cause = %q", bare.Error())
	}
}

func TestCommandErrorRetryable(t *testing.T) {
	tests := []struct {
		kind      ErrorKind
		retryable bool
	}{
		{ErrUnknown, true},
		{ErrRateLimited, true},
		{ErrTimeout, true},
		{ErrNetwork, true},
		{ErrValidation, false},
		{ErrAuth, false},
	}

	for _, tt := range tests {
		err := NewCommandError("op", tt.kind, nil)
		if err.Retryable() != tt.retryable {
			t.Errorf("Retryable() for %s = %v, want %v", tt.kind, err.Retryable(), tt.retryable)
		}
	}
}

func TestKindOf(t *testing.T) {
	err := NewCommandError("seek", ErrRateLimited, errors.New("429"))

	if KindOf(err) != ErrRateLimited {
		t.Errorf("KindOf() = %v, want ErrRateLimited", KindOf(err))
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if KindOf(wrapped) != ErrRateLimited {
		t.Error("KindOf() should see through wrapping")
	}

	if KindOf(errors.New("plain")) != ErrUnknown {
		t.Error("KindOf() of a plain error should be ErrUnknown")
	}

	if KindOf(nil) != ErrUnknown {
		t.Error("KindOf(nil) should be ErrUnknown")
	}
}

func TestErrorPredicates(t *testing.T) {
	if !IsAuthError(NewCommandError("op", ErrAuth, nil)) {
		t.Error("IsAuthError() missed an auth failure")
	}
	if IsAuthError(NewCommandError("op", ErrNetwork, nil)) {
		t.Error("IsAuthError() matched a network failure")
	}

	if !IsValidationError(NewCommandError("op", ErrValidation, nil)) {
		t.Error("IsValidationError() missed a validation failure")
	}
	if IsValidationError(errors.New("plain")) {
		t.Error("IsValidationError() matched a plain error")
	}
}
