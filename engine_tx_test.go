package goAccount

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/token"
)

var errDiskFull = errors.New("disk full")

// faultyStore wraps a store and fails session inserts while failSessions is set.
type faultyStore struct {
	store.Store
	failSessions atomic.Bool
}

func (s *faultyStore) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, faultyTx{Tx: tx, s: s})
	})
}

type faultyTx struct {
	store.Tx
	s *faultyStore
}

func (t faultyTx) Sessions() store.SessionStore {
	return faultySessions{SessionStore: t.Tx.Sessions(), s: t.s}
}

type faultySessions struct {
	store.SessionStore
	s *faultyStore
}

func (f faultySessions) Create(ctx context.Context, sess session.Session) error {
	if f.s.failSessions.Load() {
		return errDiskFull
	}
	return f.SessionStore.Create(ctx, sess)
}

func TestLoginStoreFailureRollsBackRotation(t *testing.T) {
	var faulty *faultyStore
	env := newTestEnv(t, func(b *Builder) {
		faulty = &faultyStore{Store: b.store}
		b.WithStore(faulty)
	})
	env.registerVerified(t)
	ctx := context.Background()

	first, err := env.engine.Login(ctx, testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	faulty.failSessions.Store(true)
	_, err = env.engine.Login(ctx, testEmail, testPassword, true)
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("expected the store cause to be kept, got %v", err)
	}
	if env.engine.metrics.Value(MetricTransactionFailure) != 1 {
		t.Fatalf("expected one transaction failure, got %d", env.engine.metrics.Value(MetricTransactionFailure))
	}
	faulty.failSessions.Store(false)

	if _, err := env.engine.ValidateSession(ctx, first.SessionToken); err != nil {
		t.Fatalf("earlier session must survive the failed login, got %v", err)
	}
	tok := env.token(t, first.RememberToken)
	if tok == nil || tok.Base().Used {
		t.Fatal("earlier remember token must survive the failed login")
	}

	res, err := env.engine.Autologin(ctx, first.RememberToken)
	if err != nil || res.Status != AutologinOK {
		t.Fatalf("Autologin with the earlier remember token: res=%+v err=%v", res, err)
	}
}

func TestLogoutWithRevokedRememberTokenKeepsSessions(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t)
	ctx := context.Background()

	login, err := env.engine.Login(ctx, testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	err = env.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		tok, err := tx.Tokens().FindByValue(ctx, login.RememberToken)
		if err != nil {
			return err
		}
		return tx.Tokens().MarkUsed(ctx, tok.Base().ID)
	})
	if err != nil {
		t.Fatalf("revoke remember token: %v", err)
	}

	if err := env.engine.Logout(ctx, "stale-session", login.RememberToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if env.session(t, login.SessionToken) == nil {
		t.Fatal("a revoked remember token must not end the owner's sessions")
	}
	if tok := env.token(t, login.RememberToken); tok == nil || tok.Kind() != token.KindRemember {
		t.Fatal("revoked remember token must be left as is")
	}
}

// orderStore records, per transaction, whether each call locks a user or
// writes a token or session.
type orderStore struct {
	store.Store
	mu  sync.Mutex
	txs [][]string
}

func (s *orderStore) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	steps := &[]string{}
	err := s.Store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, orderTx{Tx: tx, steps: steps})
	})
	s.mu.Lock()
	s.txs = append(s.txs, *steps)
	s.mu.Unlock()
	return err
}

func (s *orderStore) take() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := s.txs
	s.txs = nil
	return txs
}

type orderTx struct {
	store.Tx
	steps *[]string
}

func (t orderTx) Users() store.CredentialStore {
	return orderUsers{CredentialStore: t.Tx.Users(), steps: t.steps}
}

func (t orderTx) Tokens() store.TokenStore {
	return orderTokens{TokenStore: t.Tx.Tokens(), steps: t.steps}
}

func (t orderTx) Sessions() store.SessionStore {
	return orderSessions{SessionStore: t.Tx.Sessions(), steps: t.steps}
}

type orderUsers struct {
	store.CredentialStore
	steps *[]string
}

func (u orderUsers) FindByEmail(ctx context.Context, email string) (*account.User, error) {
	*u.steps = append(*u.steps, "lock")
	return u.CredentialStore.FindByEmail(ctx, email)
}

func (u orderUsers) FindByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	*u.steps = append(*u.steps, "lock")
	return u.CredentialStore.FindByID(ctx, id)
}

type orderTokens struct {
	store.TokenStore
	steps *[]string
}

func (o orderTokens) write() { *o.steps = append(*o.steps, "write") }

func (o orderTokens) Create(ctx context.Context, t token.Token) error {
	o.write()
	return o.TokenStore.Create(ctx, t)
}

func (o orderTokens) DeleteAllForUser(ctx context.Context, id uuid.UUID, kind token.Kind) error {
	o.write()
	return o.TokenStore.DeleteAllForUser(ctx, id, kind)
}

func (o orderTokens) RevokeAllForUser(ctx context.Context, id uuid.UUID, kind token.Kind) error {
	o.write()
	return o.TokenStore.RevokeAllForUser(ctx, id, kind)
}

func (o orderTokens) MarkUsed(ctx context.Context, id uuid.UUID) error {
	o.write()
	return o.TokenStore.MarkUsed(ctx, id)
}

func (o orderTokens) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	o.write()
	return o.TokenStore.IncrementFailedAttempts(ctx, id)
}

type orderSessions struct {
	store.SessionStore
	steps *[]string
}

func (o orderSessions) write() { *o.steps = append(*o.steps, "write") }

func (o orderSessions) Create(ctx context.Context, sess session.Session) error {
	o.write()
	return o.SessionStore.Create(ctx, sess)
}

func (o orderSessions) DeleteByToken(ctx context.Context, value string) error {
	o.write()
	return o.SessionStore.DeleteByToken(ctx, value)
}

func (o orderSessions) DeleteAllForUser(ctx context.Context, id uuid.UUID) error {
	o.write()
	return o.SessionStore.DeleteAllForUser(ctx, id)
}

func TestOperationsLockUserBeforeWritingCredentials(t *testing.T) {
	var order *orderStore
	env := newTestEnv(t, func(b *Builder) {
		order = &orderStore{Store: b.store}
		b.WithStore(order)
	})
	env.registerVerified(t)
	ctx := context.Background()

	login, err := env.engine.Login(ctx, testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	auto, err := env.engine.Autologin(ctx, login.RememberToken)
	if err != nil || auto.Status != AutologinOK {
		t.Fatalf("Autologin: res=%+v err=%v", auto, err)
	}
	if err := env.engine.Logout(ctx, "stale-session", auto.Login.RememberToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if err := env.engine.RequestPasswordReset(ctx, testEmail); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	msg := env.mail.next(t)
	var codeErr *InvalidCodeError
	if err := env.engine.ResetPassword(ctx, msg.Token, token.KindReset, "ZZZZZZ", "newpassword1"); !errors.As(err, &codeErr) {
		t.Fatalf("expected InvalidCodeError, got %v", err)
	}
	if err := env.engine.ResetPassword(ctx, msg.Token, token.KindReset, msg.Code, "newpassword1"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	txs := order.take()
	if len(txs) < 6 {
		t.Fatalf("expected at least 6 transactions, got %d", len(txs))
	}
	for i, steps := range txs {
		for _, step := range steps {
			if step == "lock" {
				break
			}
			if step == "write" {
				t.Fatalf("transaction %d wrote before locking a user: %s", i, strings.Join(steps, ","))
			}
		}
	}
}
