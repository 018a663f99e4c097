// Package account defines the user record the credential store persists and
// the account engine reads and mutates.
package account

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultLocale is assigned to users registered without a locale.
const DefaultLocale = "en"

// User is an identity record. Users are never physically removed by the
// engine; deletion is the Deleted flag, set elsewhere.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Locale       string
	Verified     bool
	Deleted      bool

	LastLoginAt        *time.Time
	LastLoginIP        string
	LastLoginUserAgent string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Valid reports whether the user may authenticate.
func (u *User) Valid() bool {
	return u != nil && u.Verified && !u.Deleted
}

// Snapshot returns a copy with the password hash cleared, safe to hand to callers.
func (u *User) Snapshot() User {
	if u == nil {
		return User{}
	}
	out := *u
	out.PasswordHash = ""
	if u.LastLoginAt != nil {
		at := *u.LastLoginAt
		out.LastLoginAt = &at
	}
	return out
}

// NormalizeEmail lowercases and trims an address. Stores key users by the
// normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a bare RFC 5322 address (no display name).
func ValidEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email, "@")
}
