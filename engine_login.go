package goAccount

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/store"
)

// Login authenticates email and password and replaces the user's session and
// remember token.
//
// Errors are checked in order: ErrUserNotFound, ErrInvalidPassword,
// ErrAccountInvalid. Every remember token the user holds is deleted; a new one
// is issued only when remember is true. All sessions are deleted and exactly
// one new session is created. Client address and user agent from ctx are
// stored as last-login metadata.
func (e *Engine) Login(ctx context.Context, email, pw string, remember bool) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, rehashed, err := e.login(ctx, email, pw, remember)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricLoginLatency, time.Since(start))
	}

	normalized := account.NormalizeEmail(email)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, err, auditFields{email: normalized})
		return nil, err
	}

	if rehashed {
		e.metricInc(MetricPasswordRehashed)
	}
	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, nil, auditFields{
		userID:   result.User.ID.String(),
		email:    normalized,
		metadata: map[string]string{"remember": boolString(remember)},
	})
	return result, nil
}

func (e *Engine) login(ctx context.Context, email, pw string, remember bool) (*LoginResult, bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, false, err
	}

	now := e.now()
	var (
		result   *LoginResult
		rehashed bool
	)
	err = e.withTx(ctx, "login", func(ctx context.Context, tx store.Tx) error {
		rehashed = false

		user, err := tx.Users().FindByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			// Equalize timing with the known-user path.
			_, _ = e.hasher.Verify(pw, e.dummyHash)
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		ok, err := e.hasher.Verify(pw, user.PasswordHash)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidPassword
		}
		if !user.Valid() {
			return ErrAccountInvalid
		}

		if e.config.Password.UpgradeOnLogin {
			if needs, err := e.hasher.NeedsRehash(user.PasswordHash); err == nil && needs {
				hash, err := e.hasher.Hash(pw)
				if err != nil {
					return err
				}
				user.PasswordHash = hash
				rehashed = true
			}
		}

		loginAt := now
		user.LastLoginAt = &loginAt
		user.LastLoginIP = clientIPFromContext(ctx)
		user.LastLoginUserAgent = userAgentFromContext(ctx)
		user.UpdatedAt = now
		if err := tx.Users().Save(ctx, user); err != nil {
			return err
		}

		result, err = e.issueCredentials(ctx, tx, user, remember, now)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return result, rehashed, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
