package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/store"
)

const userColumns = `id, email, password_hash, name, locale, verified, deleted,
	last_login_at, last_login_ip, last_login_user_agent, created_at, updated_at`

type userRepo struct {
	q querier
}

var _ store.CredentialStore = (*userRepo)(nil)

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*account.User, error) {
	row := r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 FOR UPDATE`,
		account.NormalizeEmail(email))

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(store.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").With("operation", "get user by email").Wrap(err)
	}
	return u, nil
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	row := r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(store.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").With("operation", "get user by id").With("id", id.String()).Wrap(err)
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, u *account.User) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, name, locale, verified, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		u.ID,
		account.NormalizeEmail(u.Email),
		u.PasswordHash,
		u.Name,
		u.Locale,
		u.Verified,
		u.Deleted,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_DUPLICATE").With("constraint", pgErr.ConstraintName).Wrap(store.ErrDuplicate)
		}
		return oops.Code("USER_CREATE_FAILED").With("operation", "insert user").Wrap(err)
	}
	return nil
}

func (r *userRepo) Save(ctx context.Context, u *account.User) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, name = $3, locale = $4, verified = $5, deleted = $6,
		    last_login_at = $7, last_login_ip = $8, last_login_user_agent = $9, updated_at = $10
		WHERE id = $1
	`,
		u.ID,
		u.PasswordHash,
		u.Name,
		u.Locale,
		u.Verified,
		u.Deleted,
		u.LastLoginAt,
		u.LastLoginIP,
		u.LastLoginUserAgent,
		u.UpdatedAt,
	)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("id", u.ID.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", u.ID.String()).Wrap(store.ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*account.User, error) {
	var u account.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Locale,
		&u.Verified,
		&u.Deleted,
		&u.LastLoginAt,
		&u.LastLoginIP,
		&u.LastLoginUserAgent,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
