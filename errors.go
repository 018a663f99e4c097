package goAccount

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every malformed-input error.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidEmail is returned for addresses that are not a bare RFC 5322 address.
	ErrInvalidEmail = fmt.Errorf("%w: invalid email", ErrValidation)
	// ErrEmailTaken is returned by Register when the address already has an account.
	ErrEmailTaken = fmt.Errorf("%w: email already registered", ErrValidation)
	// ErrPasswordPolicy is returned when a password fails a length or caller rule.
	ErrPasswordPolicy = fmt.Errorf("%w: password policy violation", ErrValidation)
	// ErrNameInvalid is returned when a display name fails a caller rule.
	ErrNameInvalid = fmt.Errorf("%w: invalid name", ErrValidation)
	// ErrTokenKindInvalid is returned when a requested kind is not signup or reset.
	ErrTokenKindInvalid = fmt.Errorf("%w: invalid token kind", ErrValidation)

	ErrTokenNotFound     = errors.New("token not found")
	ErrTokenTypeMismatch = errors.New("token type mismatch")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenAlreadyUsed  = errors.New("token already used")

	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
	// ErrAccountInvalid is returned by Login for deleted or unverified accounts.
	ErrAccountInvalid = errors.New("account invalid")
	// ErrUnauthorized is returned by Autologin when the remember token belongs
	// to a deleted or unverified account.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCode is wrapped by *InvalidCodeError.
	ErrInvalidCode = errors.New("invalid reset code")
	// ErrUserInvalid is returned by ResetPassword for deleted or unverified accounts.
	ErrUserInvalid    = errors.New("user invalid")
	ErrSessionInvalid = errors.New("session invalid")

	ErrPasswordResetRateLimited = errors.New("password reset rate limited")

	// ErrInternal is returned for storage, transaction, and limiter failures.
	// The underlying cause is wrapped alongside it for logs.
	ErrInternal       = errors.New("internal error")
	ErrEngineNotReady = errors.New("engine not initialized")
)

// InvalidCodeError reports a wrong password-reset code and how many tries the
// token still allows. Remaining is 0 once the token is locked.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid reset code: %d attempts remaining", e.Remaining)
}

func (e *InvalidCodeError) Unwrap() error { return ErrInvalidCode }

// ErrorCategory is the coarse outcome class a transport maps to a status.
type ErrorCategory string

const (
	CategoryNone            ErrorCategory = ""
	CategoryValidation      ErrorCategory = "validation"
	CategoryUnauthenticated ErrorCategory = "unauthenticated"
	CategoryNotFound        ErrorCategory = "not_found"
	CategoryRateLimited     ErrorCategory = "rate_limited"
	CategoryInternal        ErrorCategory = "internal"
)

// Category classifies err. Unknown errors are internal.
func Category(err error) ErrorCategory {
	if err == nil {
		return CategoryNone
	}

	switch {
	case errors.Is(err, ErrValidation):
		return CategoryValidation
	case errors.Is(err, ErrTokenNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrPasswordResetRateLimited):
		return CategoryRateLimited
	case errors.Is(err, ErrTokenTypeMismatch),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenAlreadyUsed),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrAccountInvalid),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidCode),
		errors.Is(err, ErrUserInvalid),
		errors.Is(err, ErrSessionInvalid):
		return CategoryUnauthenticated
	}
	return CategoryInternal
}

// internalError joins ErrInternal with the cause so errors.Is matches both.
func internalError(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, cause)
}
