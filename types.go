package goAccount

import (
	"context"
	"time"

	"github.com/MrEthical07/goAccount/account"
)

// LoginResult is returned by Login and a successful Autologin.
//
// RememberToken is empty when no remember token was issued. The session
// token travels in a request header; the remember token is meant for a
// long-lived client-side cookie.
type LoginResult struct {
	User              account.User
	SessionToken      string
	SessionExpiresAt  time.Time
	RememberToken     string
	RememberExpiresAt time.Time
}

// AutologinStatus distinguishes a rotated login from the soft warn outcome.
type AutologinStatus string

const (
	// AutologinOK means the remember token was valid and has been rotated.
	AutologinOK AutologinStatus = "ok"
	// AutologinWarn means no usable remember token was presented. Nothing
	// was changed and this is not an error.
	AutologinWarn AutologinStatus = "warn"
)

// AutologinResult carries the rotated credentials when Status is AutologinOK.
type AutologinResult struct {
	Status AutologinStatus
	Login  *LoginResult
}

// RateLimiter is a keyed fixed-window counter. Hit must be atomic under
// concurrent callers on the same key.
type RateLimiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
	TooManyAttempts(ctx context.Context, key string, max int64) (bool, error)
}

// PasswordRule is a caller-supplied password check run on Register and
// ResetPassword. A non-nil error rejects the password.
type PasswordRule func(password string) error

// NameRule is a caller-supplied display-name check run on Register.
type NameRule func(name string) error
