package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/store"
)

type sessionRepo struct {
	q querier
}

var _ store.SessionStore = (*sessionRepo)(nil)

func (r *sessionRepo) Create(ctx context.Context, s session.Session) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sessions (token_hash, user_id, email, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		session.HashToken(s.Token),
		s.UserID,
		s.Email,
		s.CreatedAt,
		s.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("SESSION_DUPLICATE").Wrap(store.ErrDuplicate)
		}
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", s.UserID.String()).
			Wrap(err)
	}
	return nil
}

func (r *sessionRepo) FindByToken(ctx context.Context, value string) (*session.Session, error) {
	s := session.Session{Token: value}
	err := r.q.QueryRow(ctx, `
		SELECT user_id, email, created_at, expires_at
		FROM sessions
		WHERE token_hash = $1
	`, session.HashToken(value)).Scan(&s.UserID, &s.Email, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(store.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_QUERY_FAILED").With("operation", "get session by token").Wrap(err)
	}
	return &s, nil
}

func (r *sessionRepo) DeleteByToken(ctx context.Context, value string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, session.HashToken(value)); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("operation", "delete session by token").Wrap(err)
	}
	return nil
}

func (r *sessionRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}
