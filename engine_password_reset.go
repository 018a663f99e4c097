package goAccount

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/MrEthical07/goAccount/internal/limiters"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/token"
)

// RequestPasswordReset issues a reset token and code for email and queues the
// reset mail.
//
// The address is validated first, then counted against the per-email request
// limit (ErrPasswordResetRateLimited once exceeded). After that the result is
// nil whether the account exists, is deleted, is unverified or is active;
// only an active account gets a token. Earlier unused reset tokens of that
// account are revoked, so at most one is redeemable at a time.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}

	email, err := normalizeEmail(email)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, err, auditFields{})
		return err
	}

	if err := e.resetLimiter.CheckRequest(ctx, email, clientIPFromContext(ctx)); err != nil {
		if errors.Is(err, limiters.ErrResetRateLimited) {
			e.metricInc(MetricPasswordResetRateLimited)
			e.emitRateLimit(ctx, "password_reset_request", email)
			return ErrPasswordResetRateLimited
		}
		e.logger.ErrorContext(ctx, "password reset limiter failed", "error", err)
		err = internalError("password reset limiter", err)
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, err, auditFields{email: email})
		return err
	}

	now := e.now()
	var (
		issued *token.Reset
		msg    mail.Message
	)
	err = e.withTx(ctx, "request_password_reset", func(ctx context.Context, tx store.Tx) error {
		issued = nil

		user, err := tx.Users().FindByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !user.Valid() {
			return nil
		}

		if err := tx.Tokens().RevokeAllForUser(ctx, user.ID, token.KindReset); err != nil {
			return err
		}
		tok, err := token.New(token.KindReset, user.ID, now, token.Options{
			TTL:        e.config.PasswordReset.TokenTTL,
			CodeLength: e.config.PasswordReset.CodeLength,
		})
		if err != nil {
			return err
		}
		if err := tx.Tokens().Create(ctx, tok); err != nil {
			return err
		}

		reset := tok.(token.Reset)
		issued = &reset
		msg = mail.Message{
			To:     user.Email,
			Name:   user.Name,
			Locale: user.Locale,
			Kind:   mail.KindPasswordReset,
		}
		return nil
	})
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, err, auditFields{email: email})
		return err
	}

	if issued != nil {
		msg.Token = issued.Value
		msg.Code = issued.Code
		e.sendMail(msg)
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, nil, auditFields{
		email:    email,
		metadata: map[string]string{"issued": boolString(issued != nil)},
	})
	return nil
}

// ResetPassword redeems a reset token with its code and stores newPassword.
//
// Token checks run first, in the same order as VerifyEmail. A wrong code
// counts as a failed attempt and returns an *InvalidCodeError; the attempt
// that reaches PasswordReset.MaxAttempts also locks the token, after which
// even the right code fails with ErrTokenAlreadyUsed. A right code on a
// deleted or unverified account fails with ErrUserInvalid. Sessions and
// remember tokens are left alone.
func (e *Engine) ResetPassword(ctx context.Context, value string, kind token.Kind, code, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}

	userID, err := e.resetPassword(ctx, value, kind, code, newPassword)
	if err != nil {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, err, auditFields{userID: userID})
		return err
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, nil, auditFields{userID: userID})
	return nil
}

func (e *Engine) resetPassword(ctx context.Context, value string, kind token.Kind, code, newPassword string) (string, error) {
	if kind != token.KindReset {
		return "", ErrTokenKindInvalid
	}
	if value == "" {
		return "", ErrTokenNotFound
	}
	if err := e.validatePassword(newPassword); err != nil {
		return "", err
	}
	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return "", internalError("reset password: hash password", err)
	}

	code = normalizeCode(code)
	maxAttempts := e.config.PasswordReset.MaxAttempts
	now := e.now()

	var (
		userID  string
		codeErr error
		locked  bool
	)
	err = e.withTx(ctx, "reset_password", func(ctx context.Context, tx store.Tx) error {
		codeErr = nil
		locked = false

		tok, user, err := lookupToken(ctx, tx, value, kind, now)
		if err != nil {
			return err
		}
		reset, ok := tok.(token.Reset)
		if !ok {
			return ErrTokenTypeMismatch
		}
		userID = reset.UserID.String()

		if subtle.ConstantTimeCompare([]byte(code), []byte(reset.Code)) != 1 {
			attempts, err := tx.Tokens().IncrementFailedAttempts(ctx, reset.ID)
			if err != nil {
				return err
			}
			reset.FailedAttempts = attempts
			remaining := reset.AttemptsLeft(maxAttempts)
			if remaining == 0 {
				if err := tx.Tokens().MarkUsed(ctx, reset.ID); err != nil {
					return err
				}
				locked = true
			}
			// The counter must commit, so the failure is reported outside fn.
			codeErr = &InvalidCodeError{Remaining: remaining}
			return nil
		}

		if user == nil || !user.Valid() {
			return ErrUserInvalid
		}

		user.PasswordHash = hash
		user.UpdatedAt = now
		if err := tx.Users().Save(ctx, user); err != nil {
			return err
		}
		return tx.Tokens().MarkUsed(ctx, reset.ID)
	})
	if err != nil {
		return userID, err
	}
	if locked {
		e.metricInc(MetricPasswordResetCodeLocked)
	}
	return userID, codeErr
}
