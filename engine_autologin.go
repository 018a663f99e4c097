package goAccount

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/token"
)

var autologinWarn = &AutologinResult{Status: AutologinWarn}

// Autologin re-establishes a session from a remember token and rotates both
// credentials.
//
// A missing, unknown, expired, used or wrong-kind token yields an
// AutologinWarn result and a nil error, and nothing is written. A token whose
// owner is deleted or unverified fails with ErrUnauthorized. On success every
// remember token and session the user holds is replaced by a fresh one.
func (e *Engine) Autologin(ctx context.Context, rememberToken string) (*AutologinResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if rememberToken == "" {
		e.metricInc(MetricAutologinWarn)
		return autologinWarn, nil
	}

	now := e.now()
	var (
		login  *LoginResult
		userID string
	)
	err := e.withTx(ctx, "autologin", func(ctx context.Context, tx store.Tx) error {
		tok, err := tx.Tokens().FindByValue(ctx, rememberToken)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if tok.Kind() != token.KindRemember || !tok.Base().Active(now) {
			return nil
		}

		// A concurrent rotation may have replaced the token before the lock.
		tok, user, err := lockTokenOwner(ctx, tx, tok)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !tok.Base().Active(now) {
			return nil
		}
		userID = tok.Base().UserID.String()

		if user == nil || !user.Valid() {
			return ErrUnauthorized
		}

		login, err = e.issueCredentials(ctx, tx, user, true, now)
		return err
	})

	switch {
	case err != nil:
		e.metricInc(MetricAutologinRejected)
		e.emitAudit(ctx, auditEventAutologin, false, err, auditFields{userID: userID})
		return nil, err
	case login == nil:
		e.metricInc(MetricAutologinWarn)
		return autologinWarn, nil
	}

	e.metricInc(MetricAutologinSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventAutologin, true, nil, auditFields{userID: userID, email: login.User.Email})
	return &AutologinResult{Status: AutologinOK, Login: login}, nil
}
