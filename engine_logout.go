package goAccount

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/token"
)

// Logout ends the session identified by sessionToken and soft-revokes the
// remember token, if one is presented.
//
// The remember token is marked used rather than deleted. When no session is
// found but an active remember token identifies a user, every session of
// that user is deleted; a used or expired remember token identifies nobody.
// Logout is idempotent: stale or empty values succeed.
func (e *Engine) Logout(ctx context.Context, sessionToken, rememberToken string) error {
	if err := e.ready(); err != nil {
		return err
	}

	now := e.now()
	var (
		userID          uuid.UUID
		sessionsCleared bool
	)
	err := e.withTx(ctx, "logout", func(ctx context.Context, tx store.Tx) error {
		userID = uuid.Nil
		sessionsCleared = false

		var (
			sess *session.Session
			tok  token.Token
			err  error
		)
		if sessionToken != "" {
			sess, err = tx.Sessions().FindByToken(ctx, sessionToken)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
		if rememberToken != "" {
			tok, err = tx.Tokens().FindByValue(ctx, rememberToken)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if tok != nil && (tok.Kind() != token.KindRemember || !tok.Base().Active(now)) {
				tok = nil
			}
		}

		var sessionOwner, tokenOwner uuid.UUID
		if sess != nil {
			sessionOwner = sess.UserID
		}
		if tok != nil {
			tokenOwner = tok.Base().UserID
		}
		if _, err := lockUsers(ctx, tx, sessionOwner, tokenOwner); err != nil {
			return err
		}

		if sess != nil {
			userID = sess.UserID
			if err := tx.Sessions().DeleteByToken(ctx, sessionToken); err != nil {
				return err
			}
			sessionsCleared = true
		}

		if tok != nil {
			// Re-read under the owner's lock; a concurrent rotation may have
			// deleted or consumed it.
			tok, err = tx.Tokens().FindByValue(ctx, rememberToken)
			switch {
			case errors.Is(err, store.ErrNotFound):
				tok = nil
			case err != nil:
				return err
			case !tok.Base().Active(now):
				tok = nil
			}
		}
		if tok != nil {
			if userID == uuid.Nil {
				userID = tok.Base().UserID
			}
			if err := tx.Tokens().MarkUsed(ctx, tok.Base().ID); err != nil {
				return err
			}
			if sess == nil {
				if err := tx.Sessions().DeleteAllForUser(ctx, tok.Base().UserID); err != nil {
					return err
				}
				sessionsCleared = true
			}
		}
		return nil
	})
	if err != nil {
		e.emitAudit(ctx, auditEventLogout, false, err, auditFields{userID: userIDString(userID)})
		return err
	}

	e.metricInc(MetricLogout)
	if sessionsCleared {
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, auditEventLogout, true, nil, auditFields{userID: userIDString(userID)})
	return nil
}
