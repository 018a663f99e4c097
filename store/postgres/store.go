// Package postgres implements store.Store on PostgreSQL through pgx.
//
// Every engine operation runs inside one pgx transaction. User lookups take a
// row lock (SELECT ... FOR UPDATE); token and session reads do not, so the
// user row is the only lock a transaction waits on first and concurrent
// rotations for the same user serialize on it.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/MrEthical07/goAccount/store"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// querier is satisfied by pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a store.Store backed by a connection pool.
type Store struct {
	db DB
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Purger = (*Store)(nil)
)

// New wraps db.
func New(db DB) *Store {
	return &Store{db: db}
}

// InTx begins a transaction, hands fn the transaction-bound stores, and
// commits if fn returns nil. Any error rolls everything back.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}

	finished := false
	defer func() {
		if !finished {
			_ = tx.Rollback(ctx) //nolint:errcheck // best effort on panic
		}
	}()

	if err := fn(ctx, &pgTx{q: tx}); err != nil {
		finished = true
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, oops.Code("TX_ROLLBACK_FAILED").Wrap(rbErr))
		}
		return err
	}

	finished = true
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

// PurgeExpired deletes sessions expired at now and tokens that expired before before.
func (s *Store) PurgeExpired(ctx context.Context, now, before time.Time) (store.PurgeResult, error) {
	var res store.PurgeResult

	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return res, oops.Code("SESSION_PURGE_FAILED").With("now", now).Wrap(err)
	}
	res.Sessions = tag.RowsAffected()

	tag, err = s.db.Exec(ctx, `DELETE FROM auth_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return res, oops.Code("TOKEN_PURGE_FAILED").With("before", before).Wrap(err)
	}
	res.Tokens = tag.RowsAffected()

	return res, nil
}

type pgTx struct {
	q querier
}

func (t *pgTx) Users() store.CredentialStore { return &userRepo{q: t.q} }
func (t *pgTx) Tokens() store.TokenStore     { return &tokenRepo{q: t.q} }
func (t *pgTx) Sessions() store.SessionStore { return &sessionRepo{q: t.q} }
