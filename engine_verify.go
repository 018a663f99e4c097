package goAccount

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/token"
)

// VerifyEmail redeems a signup token or pre-checks a reset token.
//
// kind must be token.KindSignup or token.KindReset. Token checks run in
// order: ErrTokenNotFound, ErrTokenTypeMismatch, ErrTokenExpired,
// ErrTokenAlreadyUsed. A signup token marks its user verified and is
// consumed; this is the only path that verifies an account. A reset token
// is only checked, and nothing is written.
func (e *Engine) VerifyEmail(ctx context.Context, value string, kind token.Kind) error {
	if err := e.ready(); err != nil {
		return err
	}

	userID, err := e.verifyEmail(ctx, value, kind)
	if err != nil {
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventVerifyEmail, false, err, auditFields{
			userID:   userID,
			metadata: map[string]string{"kind": kind.String()},
		})
		return err
	}

	e.metricInc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, auditEventVerifyEmail, true, nil, auditFields{
		userID:   userID,
		metadata: map[string]string{"kind": kind.String()},
	})
	return nil
}

func (e *Engine) verifyEmail(ctx context.Context, value string, kind token.Kind) (string, error) {
	if kind != token.KindSignup && kind != token.KindReset {
		return "", ErrTokenKindInvalid
	}
	if value == "" {
		return "", ErrTokenNotFound
	}

	now := e.now()
	var userID string
	err := e.withTx(ctx, "verify_email", func(ctx context.Context, tx store.Tx) error {
		tok, user, err := lookupToken(ctx, tx, value, kind, now)
		if err != nil {
			return err
		}
		userID = userIDString(tok.Base().UserID)

		if kind == token.KindReset {
			return nil
		}
		if user == nil {
			return fmt.Errorf("verify email: owner of token %s: %w", tok.Base().ID, store.ErrNotFound)
		}
		user.Verified = true
		user.UpdatedAt = now
		if err := tx.Users().Save(ctx, user); err != nil {
			return err
		}
		return tx.Tokens().MarkUsed(ctx, tok.Base().ID)
	})
	return userID, err
}
