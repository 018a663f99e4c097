package goAccount

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/store/memory"
	"github.com/MrEthical07/goAccount/token"
)

const (
	testEmail    = "a@x.com"
	testPassword = "pw12345678"
	testName     = "Ann"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mailbox struct {
	ch chan mail.Message
}

func newMailbox() *mailbox {
	return &mailbox{ch: make(chan mail.Message, 32)}
}

func (m *mailbox) Send(_ context.Context, msg mail.Message) error {
	m.ch <- msg
	return nil
}

func (m *mailbox) next(t *testing.T) mail.Message {
	t.Helper()
	select {
	case msg := <-m.ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mail")
	}
	return mail.Message{}
}

func (m *mailbox) empty(t *testing.T) {
	t.Helper()
	select {
	case msg := <-m.ch:
		t.Fatalf("unexpected mail %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 32
	return cfg
}

type testEnv struct {
	engine *Engine
	store  *memory.Store
	clock  *testClock
	mail   *mailbox
	redis  *miniredis.Miniredis
}

func newTestEnv(t *testing.T, mutate ...func(*Builder)) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	env := &testEnv{
		store: memory.New(),
		clock: newTestClock(),
		mail:  newMailbox(),
		redis: mr,
	}

	b := New().
		WithConfig(testConfig()).
		WithStore(env.store).
		WithRedis(rdb).
		WithMailer(env.mail).
		WithClock(env.clock.Now)
	for _, fn := range mutate {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

// registerVerified registers testEmail and redeems its signup token.
func (env *testEnv) registerVerified(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := env.engine.Register(ctx, testEmail, testPassword, testName, "en"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	msg := env.mail.next(t)
	if err := env.engine.VerifyEmail(ctx, msg.Token, token.KindSignup); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
}

func (env *testEnv) user(t *testing.T, email string) *account.User {
	t.Helper()
	var u *account.User
	err := env.store.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		u, err = tx.Users().FindByEmail(ctx, email)
		return err
	})
	if err != nil {
		t.Fatalf("FindByEmail(%q) failed: %v", email, err)
	}
	return u
}

func (env *testEnv) updateUser(t *testing.T, email string, fn func(*account.User)) {
	t.Helper()
	err := env.store.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		u, err := tx.Users().FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		fn(u)
		return tx.Users().Save(ctx, u)
	})
	if err != nil {
		t.Fatalf("update user failed: %v", err)
	}
}

// token returns the stored token for value, or nil when none exists.
func (env *testEnv) token(t *testing.T, value string) token.Token {
	t.Helper()
	var tok token.Token
	err := env.store.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		tok, err = tx.Tokens().FindByValue(ctx, value)
		return err
	})
	if err != nil {
		return nil
	}
	return tok
}

func (env *testEnv) session(t *testing.T, value string) *session.Session {
	t.Helper()
	var s *session.Session
	err := env.store.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		s, err = tx.Sessions().FindByToken(ctx, value)
		return err
	})
	if err != nil {
		return nil
	}
	return s
}
