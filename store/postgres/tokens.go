package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/token"
)

type tokenRepo struct {
	q querier
}

var _ store.TokenStore = (*tokenRepo)(nil)

func (r *tokenRepo) Create(ctx context.Context, t token.Token) error {
	rec := token.Encode(t)
	_, err := r.q.Exec(ctx, `
		INSERT INTO auth_tokens (id, user_id, value_hash, kind, code, expires_at, used, failed_attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.ID,
		rec.UserID,
		rec.ValueHash,
		string(rec.Kind),
		rec.Code,
		rec.ExpiresAt,
		rec.Used,
		rec.FailedAttempts,
		rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("TOKEN_DUPLICATE").Wrap(store.ErrDuplicate)
		}
		return oops.Code("TOKEN_CREATE_FAILED").
			With("kind", rec.Kind.String()).
			With("user_id", rec.UserID.String()).
			Wrap(err)
	}
	return nil
}

func (r *tokenRepo) FindByValue(ctx context.Context, value string) (token.Token, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, user_id, value_hash, kind, code, expires_at, used, failed_attempts, created_at
		FROM auth_tokens
		WHERE value_hash = $1
	`, token.HashValue(value))

	var (
		rec  token.Record
		kind string
	)
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.ValueHash,
		&kind,
		&rec.Code,
		&rec.ExpiresAt,
		&rec.Used,
		&rec.FailedAttempts,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(store.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_QUERY_FAILED").With("operation", "get token by value").Wrap(err)
	}
	rec.Kind = token.Kind(kind)

	t, err := token.Decode(rec, value)
	if err != nil {
		return nil, oops.Code("TOKEN_DECODE_FAILED").With("id", rec.ID.String()).Wrap(err)
	}
	return t, nil
}

func (r *tokenRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID, kind token.Kind) error {
	_, err := r.q.Exec(ctx, `DELETE FROM auth_tokens WHERE user_id = $1 AND kind = $2`, userID, string(kind))
	if err != nil {
		return oops.Code("TOKEN_DELETE_FAILED").
			With("user_id", userID.String()).
			With("kind", kind.String()).
			Wrap(err)
	}
	return nil
}

func (r *tokenRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID, kind token.Kind) error {
	_, err := r.q.Exec(ctx, `UPDATE auth_tokens SET used = TRUE WHERE user_id = $1 AND kind = $2 AND NOT used`,
		userID, string(kind))
	if err != nil {
		return oops.Code("TOKEN_REVOKE_FAILED").
			With("user_id", userID.String()).
			With("kind", kind.String()).
			Wrap(err)
	}
	return nil
}

func (r *tokenRepo) MarkUsed(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `UPDATE auth_tokens SET used = TRUE WHERE id = $1`, id)
	if err != nil {
		return oops.Code("TOKEN_UPDATE_FAILED").With("id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("TOKEN_NOT_FOUND").With("id", id.String()).Wrap(store.ErrNotFound)
	}
	return nil
}

func (r *tokenRepo) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := r.q.QueryRow(ctx, `
		UPDATE auth_tokens SET failed_attempts = failed_attempts + 1
		WHERE id = $1
		RETURNING failed_attempts
	`, id).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, oops.Code("TOKEN_NOT_FOUND").With("id", id.String()).Wrap(store.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("TOKEN_UPDATE_FAILED").With("id", id.String()).Wrap(err)
	}
	return attempts, nil
}
