//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/token"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := tcpostgres.Run(ctx,
		"postgres:18-alpine",
		tcpostgres.WithDatabase("goaccount_test"),
		tcpostgres.WithUsername("goaccount"),
		tcpostgres.WithPassword("goaccount"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, MigratePool(ctx, pool))
	return pool
}

func TestIntegrationLifecycle(t *testing.T) {
	pool := startPostgres(t)
	s := New(pool)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	u := &account.User{
		ID:        uuid.New(),
		Email:     "Ann@Example.com",
		Name:      "Ann",
		Locale:    "en",
		CreatedAt: now,
		UpdatedAt: now,
	}
	reset, err := token.New(token.KindReset, u.ID, now, token.Options{TTL: time.Hour, CodeLength: 6})
	require.NoError(t, err)
	sess, err := session.New(u.ID, "ann@example.com", now, time.Hour)
	require.NoError(t, err)

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		if err := tx.Tokens().Create(ctx, reset); err != nil {
			return err
		}
		return tx.Sessions().Create(ctx, sess)
	}))

	err = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Users().Create(ctx, &account.User{ID: uuid.New(), Email: "ann@example.com", CreatedAt: now, UpdatedAt: now})
	})
	require.ErrorIs(t, err, store.ErrDuplicate)

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.Users().FindByEmail(ctx, "ANN@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Nil(t, got.LastLoginAt)

		tok, err := tx.Tokens().FindByValue(ctx, reset.Base().Value)
		require.NoError(t, err)
		r := tok.(token.Reset)
		assert.Equal(t, reset.(token.Reset).Code, r.Code)

		n, err := tx.Tokens().IncrementFailedAttempts(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		found, err := tx.Sessions().FindByToken(ctx, sess.Token)
		require.NoError(t, err)
		assert.Equal(t, u.ID, found.UserID)
		return nil
	}))

	res, err := s.PurgeExpired(ctx, now.Add(2*time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, store.PurgeResult{Tokens: 1, Sessions: 1}, res)
}

func newIntegrationEngine(t *testing.T, pool *pgxpool.Pool) (*goAccount.Engine, <-chan mail.Message) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goAccount.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	mails := make(chan mail.Message, 8)
	engine, err := goAccount.New().
		WithConfig(cfg).
		WithStore(New(pool)).
		WithRedis(rdb).
		WithMailer(mail.NotifierFunc(func(_ context.Context, msg mail.Message) error {
			mails <- msg
			return nil
		})).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine, mails
}

func TestIntegrationConcurrentLoginAutologinLogout(t *testing.T) {
	pool := startPostgres(t)
	engine, mails := newIntegrationEngine(t, pool)
	ctx := context.Background()

	const (
		email    = "ann@example.com"
		password = "pw12345678"
	)
	require.NoError(t, engine.Register(ctx, email, password, "Ann", "en"))
	var signup mail.Message
	select {
	case signup = <-mails:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for signup mail")
	}
	require.NoError(t, engine.VerifyEmail(ctx, signup.Token, token.KindSignup))

	for round := range 20 {
		seed, err := engine.Login(ctx, email, password, true)
		require.NoError(t, err)
		userID := seed.User.ID

		var wg sync.WaitGroup
		errs := make(chan error, 3)
		wg.Add(3)
		go func() {
			defer wg.Done()
			if _, err := engine.Login(ctx, email, password, true); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := engine.Autologin(ctx, seed.RememberToken); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if err := engine.Logout(ctx, "", seed.RememberToken); err != nil {
				errs <- err
			}
		}()
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err, "round %d", round)
		}

		var sessions, remember int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT count(*) FROM sessions WHERE user_id = $1`, userID).Scan(&sessions))
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT count(*) FROM auth_tokens WHERE user_id = $1 AND kind = $2 AND NOT used`,
			userID, string(token.KindRemember)).Scan(&remember))
		assert.LessOrEqual(t, sessions, 1, "round %d", round)
		assert.LessOrEqual(t, remember, 1, "round %d", round)
	}
}
