// Package token models single-purpose auth tokens as a closed tagged union.
//
// The three kinds share one persisted shape ([Record]) but only [Reset]
// carries a code and a failed-attempt counter. Stores persist records;
// the engine works with the union through [Decode] and [Encode], which are
// exhaustive over the kinds.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goAccount/internal"
)

// Kind discriminates the token union.
type Kind string

const (
	KindSignup   Kind = "signup"
	KindReset    Kind = "reset"
	KindRemember Kind = "remember"
)

// ErrUnknownKind is returned for kinds outside the union.
var ErrUnknownKind = errors.New("unknown token kind")

// ParseKind converts a wire string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSignup, KindReset, KindRemember:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) String() string { return string(k) }

// Meta holds the fields every kind carries.
type Meta struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Value     string
	ExpiresAt time.Time
	CreatedAt time.Time
	Used      bool
}

// Active reports whether the token can still be redeemed at now. Expiry is
// evaluated here, at read time, and never written back.
func (m Meta) Active(now time.Time) bool {
	return !m.Used && now.Before(m.ExpiresAt)
}

// Expired reports whether now is at or past the expiry.
func (m Meta) Expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}

// Token is implemented only by Signup, Reset and Remember.
type Token interface {
	Kind() Kind
	Base() Meta
	sealed()
}

// Signup verifies the email address of a new account.
type Signup struct{ Meta }

// Reset authorizes one password change and is guarded by a short code.
type Reset struct {
	Meta
	Code           string
	FailedAttempts int
}

// Remember re-establishes a session without the password.
type Remember struct{ Meta }

func (Signup) Kind() Kind   { return KindSignup }
func (Reset) Kind() Kind    { return KindReset }
func (Remember) Kind() Kind { return KindRemember }

func (t Signup) Base() Meta   { return t.Meta }
func (t Reset) Base() Meta    { return t.Meta }
func (t Remember) Base() Meta { return t.Meta }

func (Signup) sealed()   {}
func (Reset) sealed()    {}
func (Remember) sealed() {}

// AttemptsLeft returns how many wrong codes the token still tolerates.
func (t Reset) AttemptsLeft(max int) int {
	if left := max - t.FailedAttempts; left > 0 {
		return left
	}
	return 0
}

// Options size new tokens.
type Options struct {
	TTL        time.Duration
	CodeLength int // Reset only
}

// New issues a token of kind k for userID with a fresh opaque value.
func New(k Kind, userID uuid.UUID, now time.Time, opts Options) (Token, error) {
	if opts.TTL <= 0 {
		return nil, errors.New("token ttl must be > 0")
	}
	value, err := internal.NewOpaqueToken(internal.OpaqueTokenSize)
	if err != nil {
		return nil, err
	}
	meta := Meta{
		ID:        uuid.New(),
		UserID:    userID,
		Value:     value,
		ExpiresAt: now.Add(opts.TTL),
		CreatedAt: now,
	}

	switch k {
	case KindSignup:
		return Signup{Meta: meta}, nil
	case KindRemember:
		return Remember{Meta: meta}, nil
	case KindReset:
		code, err := internal.NewCode(opts.CodeLength)
		if err != nil {
			return nil, err
		}
		return Reset{Meta: meta, Code: code}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
}
