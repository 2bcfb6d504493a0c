package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenNotFound      = errors.New("refresh token not found")
	ErrTokenInactive      = errors.New("refresh token is not active")
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrValidation         = errors.New("validation failed")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

const (
	ReasonReuse         = "reuse of revoked ancestor"
	ReasonReplaced      = "replaced by new token"
	ReasonRevoked       = "revoked without replacement"
	ReasonRevokedByUser = "revoked by user"
	ReasonPasswordReset = "password reset"
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IsRetryable is true only for transient store failures.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
