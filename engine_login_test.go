package goAccount

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/token"
)

func TestLoginIssuesSessionAndRememberToken(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t)

	ctx := WithUserAgent(WithClientIP(context.Background(), "203.0.113.7"), "test-agent/1.0")
	res, err := env.engine.Login(ctx, "A@x.com", testPassword, true)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.SessionToken == "" || res.RememberToken == "" {
		t.Fatalf("expected both credentials, got %+v", res)
	}
	if res.User.PasswordHash != "" {
		t.Fatal("login result must not expose the password hash")
	}
	now := env.clock.Now()
	if !res.SessionExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected 1h session, got %s", res.SessionExpiresAt.Sub(now))
	}
	if !res.RememberExpiresAt.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Fatalf("expected 30d remember token, got %s", res.RememberExpiresAt.Sub(now))
	}

	u := env.user(t, testEmail)
	if u.LastLoginAt == nil || !u.LastLoginAt.Equal(now) {
		t.Fatalf("expected last login at %s, got %v", now, u.LastLoginAt)
	}
	if u.LastLoginIP != "203.0.113.7" || u.LastLoginUserAgent != "test-agent/1.0" {
		t.Fatalf("unexpected last login metadata %+v", u)
	}

	sess, err := env.engine.ValidateSession(ctx, res.SessionToken)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if sess.UserID != u.ID || sess.Email != testEmail {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestLoginWithoutRememberDropsExistingRememberToken(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t)
	ctx := context.Background()

	first, err := env.engine.Login(ctx, testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	second, err := env.engine.Login(ctx, testEmail, testPassword, false)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if second.RememberToken != "" {
		t.Fatal("remember=false must not issue a remember token")
	}
	if env.token(t, first.RememberToken) != nil {
		t.Fatal("earlier remember token must be deleted")
	}
}

func TestLoginErrorsInOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Login(ctx, "nobody@x.com", testPassword, false); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := env.engine.Register(ctx, testEmail, testPassword, testName, "en"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	env.mail.next(t)

	// Wrong password beats the unverified state.
	if _, err := env.engine.Login(ctx, testEmail, "wrong-password", false); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if _, err := env.engine.Login(ctx, testEmail, testPassword, false); !errors.Is(err, ErrAccountInvalid) {
		t.Fatalf("expected ErrAccountInvalid for unverified, got %v", err)
	}

	env.updateUser(t, testEmail, func(u *account.User) {
		u.Verified = true
		u.Deleted = true
	})
	if _, err := env.engine.Login(ctx, testEmail, testPassword, false); !errors.Is(err, ErrAccountInvalid) {
		t.Fatalf("expected ErrAccountInvalid for deleted, got %v", err)
	}
}

func TestSecondLoginInvalidatesFirstCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t)
	ctx := context.Background()

	first, err := env.engine.Login(ctx, testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("Login #1 failed: %v", err)
	}
	second, err := env.engine.Login(ctx, testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("Login #2 failed: %v", err)
	}

	if first.SessionToken == second.SessionToken || first.RememberToken == second.RememberToken {
		t.Fatal("second login must issue fresh values")
	}
	if _, err := env.engine.ValidateSession(ctx, first.SessionToken); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected first session invalid, got %v", err)
	}
	if _, err := env.engine.ValidateSession(ctx, second.SessionToken); err != nil {
		t.Fatalf("second session must be valid: %v", err)
	}
	if env.token(t, first.RememberToken) != nil {
		t.Fatal("first remember token must be gone")
	}
	if tok := env.token(t, second.RememberToken); tok == nil || !tok.Base().Active(env.clock.Now()) {
		t.Fatal("second remember token must be active")
	}
}

func TestConcurrentLoginsLeaveOneSessionAndRememberToken(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t)
	ctx := context.Background()

	const workers = 8
	results := make([]*LoginResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := env.engine.Login(ctx, testEmail, testPassword, true)
			if err != nil {
				t.Errorf("Login failed: %v", err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	now := env.clock.Now()
	sessions, remembers := 0, 0
	for _, res := range results {
		if res == nil {
			continue
		}
		if env.session(t, res.SessionToken) != nil {
			sessions++
		}
		if tok := env.token(t, res.RememberToken); tok != nil && tok.Base().Active(now) {
			remembers++
		}
	}
	if sessions != 1 || remembers != 1 {
		t.Fatalf("expected one session and one remember token, got %d and %d", sessions, remembers)
	}
}

func TestLoginUpgradesWeakPasswordHash(t *testing.T) {
	env := newTestEnv(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Password.Time = 2
		cfg.Password.UpgradeOnLogin = true
		b.WithConfig(cfg)
	})
	env.registerVerified(t)
	ctx := context.Background()

	weak, err := password.NewArgon2id(password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewArgon2id failed: %v", err)
	}
	weakHash, err := weak.Hash(testPassword)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	env.updateUser(t, testEmail, func(u *account.User) { u.PasswordHash = weakHash })

	if _, err := env.engine.Login(ctx, testEmail, testPassword, false); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if got := env.user(t, testEmail).PasswordHash; got == weakHash {
		t.Fatal("expected hash to be upgraded")
	}
	if env.engine.metrics.Value(MetricPasswordRehashed) != 1 {
		t.Fatal("expected rehash metric")
	}
	if _, err := env.engine.Login(ctx, testEmail, testPassword, false); err != nil {
		t.Fatalf("Login with upgraded hash failed: %v", err)
	}
}

func TestAutologinRotatesCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t)
	ctx := context.Background()

	login, err := env.engine.Login(ctx, testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	env.clock.Advance(2 * time.Hour)
	res, err := env.engine.Autologin(ctx, login.RememberToken)
	if err != nil {
		t.Fatalf("Autologin failed: %v", err)
	}
	if res.Status != AutologinOK || res.Login == nil {
		t.Fatalf("expected ok with credentials, got %+v", res)
	}
	if res.Login.RememberToken == login.RememberToken || res.Login.SessionToken == login.SessionToken {
		t.Fatal("autologin must rotate both credentials")
	}
	if !res.Login.RememberExpiresAt.Equal(env.clock.Now().Add(30 * 24 * time.Hour)) {
		t.Fatal("remember expiry must slide")
	}
	if env.token(t, login.RememberToken) != nil {
		t.Fatal("old remember token must be deleted")
	}
	if env.session(t, login.SessionToken) != nil {
		t.Fatal("old session must be deleted")
	}

	again, err := env.engine.Autologin(ctx, login.RememberToken)
	if err != nil || again.Status != AutologinWarn {
		t.Fatalf("replayed token must warn, got %+v, %v", again, err)
	}
}

func TestAutologinWarnsWithoutMutating(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t)
	ctx := context.Background()

	login, err := env.engine.Login(ctx, testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := env.engine.RequestPasswordReset(ctx, testEmail); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	reset := env.mail.next(t).Token

	for _, value := range []string{"", "unknown", reset} {
		res, err := env.engine.Autologin(ctx, value)
		if err != nil {
			t.Fatalf("Autologin(%q) returned error %v", value, err)
		}
		if res.Status != AutologinWarn || res.Login != nil {
			t.Fatalf("Autologin(%q) expected warn, got %+v", value, res)
		}
	}

	env.clock.Advance(31 * 24 * time.Hour)
	res, err := env.engine.Autologin(ctx, login.RememberToken)
	if err != nil || res.Status != AutologinWarn {
		t.Fatalf("expired token must warn, got %+v, %v", res, err)
	}
	if env.token(t, login.RememberToken) == nil {
		t.Fatal("warn path must not delete the expired token")
	}
	if env.session(t, login.SessionToken) == nil {
		t.Fatal("warn path must not touch sessions")
	}
}

func TestAutologinUsedTokenWarns(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t)
	ctx := context.Background()

	login, err := env.engine.Login(ctx, testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := env.engine.Logout(ctx, "", login.RememberToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	res, err := env.engine.Autologin(ctx, login.RememberToken)
	if err != nil || res.Status != AutologinWarn {
		t.Fatalf("used token must warn, got %+v, %v", res, err)
	}
	if tok := env.token(t, login.RememberToken); tok == nil || !tok.Base().Used {
		t.Fatal("used token must stay stored and used")
	}
}

func TestAutologinInvalidUserIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t)
	ctx := context.Background()

	login, err := env.engine.Login(ctx, testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	env.updateUser(t, testEmail, func(u *account.User) { u.Deleted = true })

	if _, err := env.engine.Autologin(ctx, login.RememberToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if tok := env.token(t, login.RememberToken); tok == nil || tok.Base().Used {
		t.Fatal("rejected autologin must not change the token")
	}
}

func TestLogoutRevokesRememberTokenAndDeletesSession(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t)
	ctx := context.Background()

	login, err := env.engine.Login(ctx, testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := env.engine.Logout(ctx, login.SessionToken, login.RememberToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if env.session(t, login.SessionToken) != nil {
		t.Fatal("session must be deleted")
	}
	tok := env.token(t, login.RememberToken)
	if tok == nil || !tok.Base().Used || tok.Kind() != token.KindRemember {
		t.Fatal("remember token must be kept and marked used")
	}

	if err := env.engine.Logout(ctx, login.SessionToken, login.RememberToken); err != nil {
		t.Fatalf("second Logout must succeed, got %v", err)
	}
	if err := env.engine.Logout(ctx, "", ""); err != nil {
		t.Fatalf("empty Logout must succeed, got %v", err)
	}
}

func TestLogoutByRememberTokenClearsUserSessions(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t)
	ctx := context.Background()

	login, err := env.engine.Login(ctx, testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := env.engine.Logout(ctx, "stale-session", login.RememberToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if env.session(t, login.SessionToken) != nil {
		t.Fatal("sessions of the remember token owner must be deleted")
	}
}

func TestValidateSessionRejectsExpiredAndUnknown(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t)
	ctx := context.Background()

	login, err := env.engine.Login(ctx, testEmail, testPassword, false)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	for _, value := range []string{"", "unknown"} {
		if _, err := env.engine.ValidateSession(ctx, value); !errors.Is(err, ErrSessionInvalid) {
			t.Fatalf("ValidateSession(%q) expected ErrSessionInvalid, got %v", value, err)
		}
	}

	env.clock.Advance(time.Hour)
	if _, err := env.engine.ValidateSession(ctx, login.SessionToken); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected expired session invalid, got %v", err)
	}
	if env.session(t, login.SessionToken) == nil {
		t.Fatal("expiry must not delete the row")
	}
}

func TestEngineNotReady(t *testing.T) {
	var e *Engine
	ctx := context.Background()
	if _, err := e.Login(ctx, testEmail, testPassword, false); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := e.Logout(ctx, "", ""); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
