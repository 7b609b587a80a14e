package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies command and transport failures so callers can
// decide between retrying, re-authenticating, and surfacing the error.
type ErrorKind int

const (
	// ErrUnknown is any failure not classified below
	ErrUnknown ErrorKind = iota
	// ErrValidation is malformed input to a command; rejected before any
	// network call
	ErrValidation
	// ErrAuth is a missing/invalid/expired token; never retried locally
	ErrAuth
	// ErrRateLimited is HTTP 429; retried honoring Retry-After
	ErrRateLimited
	// ErrTimeout is a request that exceeded its deadline
	ErrTimeout
	// ErrNetwork is a transport-level failure
	ErrNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case ErrValidation:
		return "validation"
	case ErrAuth:
		return "authentication"
	case ErrRateLimited:
		return "rate_limited"
	case ErrTimeout:
		return "timeout"
	case ErrNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// CommandError carries the operation name and classification alongside
// the underlying cause.
type CommandError struct {
	Op         string
	Kind       ErrorKind
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure class may succeed on retry.
func (e *CommandError) Retryable() bool {
	switch e.Kind {
	case ErrRateLimited, ErrTimeout, ErrNetwork, ErrUnknown:
		return true
	}
	return false
}

// NewCommandError wraps err with operation context and a classification.
func NewCommandError(op string, kind ErrorKind, err error) *CommandError {
	return &CommandError{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the classification from err, or ErrUnknown.
func KindOf(err error) ErrorKind {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrUnknown
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	return KindOf(err) == ErrAuth
}

// IsValidationError reports whether err was rejected before any network
// call.
func IsValidationError(err error) bool {
	return KindOf(err) == ErrValidation
}
