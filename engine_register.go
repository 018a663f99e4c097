package goAccount

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/token"
)

// Register creates an unverified account and a 24-hour signup token, then
// queues the verification mail once the transaction has committed.
//
// The token value is never returned. Register fails with ErrEmailTaken when
// the address already has an account and with ErrPasswordPolicy or
// ErrNameInvalid when a rule rejects the input; all three wrap ErrValidation.
func (e *Engine) Register(ctx context.Context, email, pw, name, locale string) error {
	if err := e.ready(); err != nil {
		return err
	}

	err := e.register(ctx, email, pw, name, locale)
	if err != nil {
		e.metricInc(MetricRegisterRejected)
		e.emitAudit(ctx, auditEventRegister, false, err, auditFields{email: account.NormalizeEmail(email)})
	}
	return err
}

func (e *Engine) register(ctx context.Context, email, pw, name, locale string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if err := e.validatePassword(pw); err != nil {
		return err
	}
	name, err = e.validateName(name)
	if err != nil {
		return err
	}
	locale = normalizeLocale(locale)

	hash, err := e.hasher.Hash(pw)
	if err != nil {
		return internalError("register: hash password", err)
	}

	now := e.now()
	user := &account.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Locale:       locale,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var signup token.Token
	err = e.withTx(ctx, "register", func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Users().FindByEmail(ctx, email)
		switch {
		case err == nil:
			return ErrEmailTaken
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrEmailTaken
			}
			return err
		}

		signup, err = token.New(token.KindSignup, user.ID, now, token.Options{TTL: e.config.Signup.TokenTTL})
		if err != nil {
			return err
		}
		return tx.Tokens().Create(ctx, signup)
	})
	if err != nil {
		return err
	}

	e.sendMail(mail.Message{
		To:     user.Email,
		Name:   user.Name,
		Locale: user.Locale,
		Kind:   mail.KindVerifySignup,
		Token:  signup.Base().Value,
	})

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegister, true, nil, auditFields{userID: user.ID.String(), email: email})
	return nil
}
