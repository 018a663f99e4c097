package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goAccount/internal"
)

// Record is the flat persisted row. Value is never stored: stores keep
// ValueHash and index on it.
type Record struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ValueHash      string
	Kind           Kind
	Code           *string
	ExpiresAt      time.Time
	CreatedAt      time.Time
	Used           bool
	FailedAttempts int
}

// ErrInvalidRecord is returned when a record violates the per-kind shape.
var ErrInvalidRecord = errors.New("invalid token record")

// HashValue is the lookup key stores use for a token value.
func HashValue(value string) string {
	return internal.LookupHash(value)
}

// Encode flattens t into a record.
func Encode(t Token) Record {
	m := t.Base()
	r := Record{
		ID:        m.ID,
		UserID:    m.UserID,
		ValueHash: HashValue(m.Value),
		Kind:      t.Kind(),
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
		Used:      m.Used,
	}
	if reset, ok := t.(Reset); ok {
		code := reset.Code
		r.Code = &code
		r.FailedAttempts = reset.FailedAttempts
	}
	return r
}

// Decode rebuilds the union from a record. value is the plaintext the caller
// looked the record up by.
func Decode(r Record, value string) (Token, error) {
	meta := Meta{
		ID:        r.ID,
		UserID:    r.UserID,
		Value:     value,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
		Used:      r.Used,
	}

	switch r.Kind {
	case KindSignup:
		if r.Code != nil {
			return nil, fmt.Errorf("%w: signup token with code", ErrInvalidRecord)
		}
		return Signup{Meta: meta}, nil
	case KindRemember:
		if r.Code != nil {
			return nil, fmt.Errorf("%w: remember token with code", ErrInvalidRecord)
		}
		return Remember{Meta: meta}, nil
	case KindReset:
		if r.Code == nil || *r.Code == "" {
			return nil, fmt.Errorf("%w: reset token without code", ErrInvalidRecord)
		}
		return Reset{Meta: meta, Code: *r.Code, FailedAttempts: r.FailedAttempts}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
}
