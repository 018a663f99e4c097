package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/samber/oops"

	"github.com/MrEthical07/goAccount/store/postgres/migrations"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return oops.Code("MIGRATION_DIALECT_FAILED").Wrap(err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}
	return nil
}

// MigratePool runs Migrate over a database/sql handle borrowed from pool.
func MigratePool(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close() //nolint:errcheck // closing the wrapper does not close the pool

	return Migrate(ctx, db)
}
