// Package store declares the persistence contracts the account engine
// consumes: users, tokens and sessions, mutated together inside one
// transaction.
//
// Implementations live in store/memory and store/postgres.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/token"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("store: duplicate")
)

// Store runs fn inside one atomic unit of work. If fn returns an error every
// write made through tx is rolled back; otherwise all of them commit.
//
// User lookups made through tx lock that row until the transaction ends.
// Token and session lookups do not lock; callers lock the owning user before
// changing that user's tokens or sessions, so transactions touching the same
// user serialize on the user row and always take locks in the same order.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the stores bound to one transaction.
type Tx interface {
	Users() CredentialStore
	Tokens() TokenStore
	Sessions() SessionStore
}

// CredentialStore persists user identity records.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*account.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*account.User, error)
	// Create inserts u. It returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, u *account.User) error
	// Save overwrites the mutable fields of an existing user.
	Save(ctx context.Context, u *account.User) error
}

// TokenStore persists auth tokens keyed by their value hash.
type TokenStore interface {
	Create(ctx context.Context, t token.Token) error
	FindByValue(ctx context.Context, value string) (token.Token, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID, kind token.Kind) error
	// RevokeAllForUser marks every unused token of kind for userID as used.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, kind token.Kind) error
	MarkUsed(ctx context.Context, id uuid.UUID) error
	// IncrementFailedAttempts atomically bumps the counter and returns the new value.
	IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error)
}

// SessionStore persists sessions keyed by their token hash.
type SessionStore interface {
	Create(ctx context.Context, s session.Session) error
	FindByToken(ctx context.Context, value string) (*session.Session, error)
	DeleteByToken(ctx context.Context, value string) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

// PurgeResult reports what PurgeExpired removed.
type PurgeResult struct {
	Tokens   int64
	Sessions int64
}

// Purger is the periodic cleanup collaborator. It deletes sessions expired at
// now and tokens that expired before the retention cutoff before, which keeps
// used tokens around for audit in the meantime. The engine never depends on
// it; expiry is always evaluated at read time.
type Purger interface {
	PurgeExpired(ctx context.Context, now, before time.Time) (PurgeResult, error)
}
