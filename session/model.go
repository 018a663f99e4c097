package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goAccount/internal"
)

// Session is the "currently logged in" record. Token is the opaque CSRF-bound
// value the client echoes on every request; stores persist only its hash.
type Session struct {
	Token     string
	UserID    uuid.UUID
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// New opens a session for userID, valid for ttl from now.
func New(userID uuid.UUID, email string, now time.Time, ttl time.Duration) (Session, error) {
	if ttl <= 0 {
		return Session{}, errors.New("session ttl must be > 0")
	}
	value, err := internal.NewOpaqueToken(internal.OpaqueTokenSize)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     value,
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Active reports whether the session is still valid at now. Like tokens,
// sessions are never rewritten on expiry.
func (s Session) Active(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// HashToken is the lookup key stores use for a session token.
func HashToken(value string) string {
	return internal.LookupHash(value)
}
