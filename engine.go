package goAccount

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/limiters"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/token"
)

// Engine is the account service: registration, email verification, login,
// autologin, logout, and password reset. Build one with [New] and
// [Builder.Build]; it is safe for concurrent use.
//
// Every operation that touches more than one record runs in a single
// store transaction. Mail is queued only after that transaction commits.
type Engine struct {
	config        Config
	store         store.Store
	hasher        password.Hasher
	dummyHash     string
	resetLimiter  *limiters.PasswordResetLimiter
	mailer        *mail.Dispatcher
	audit         *audit.Dispatcher
	metrics       *Metrics
	logger        *slog.Logger
	now           func() time.Time
	passwordRules []PasswordRule
	nameRules     []NameRule
}

// Close flushes queued mail and audit events and stops their goroutines.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.mailer.Close()
	e.audit.Close()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counters for the exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// withTx runs fn in one store transaction. Domain errors pass through
// unchanged; anything else rolled the transaction back and becomes ErrInternal.
func (e *Engine) withTx(ctx context.Context, op string, fn func(ctx context.Context, tx store.Tx) error) error {
	err := e.store.InTx(ctx, fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInternal) {
		return err
	}
	if Category(err) != CategoryInternal {
		return err
	}
	e.metricInc(MetricTransactionFailure)
	e.logger.ErrorContext(ctx, "account transaction failed", "op", op, "error", err)
	return internalError(op, err)
}

// lookupToken resolves value, locks its owner, and applies the shared
// validity checks in order: not found, kind mismatch, expired, already used.
// The returned user is nil when the owner no longer exists.
func lookupToken(ctx context.Context, tx store.Tx, value string, kind token.Kind, now time.Time) (token.Token, *account.User, error) {
	tok, err := tx.Tokens().FindByValue(ctx, value)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	tok, user, err := lockTokenOwner(ctx, tx, tok)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	meta := tok.Base()
	switch {
	case tok.Kind() != kind:
		return nil, nil, ErrTokenTypeMismatch
	case meta.Expired(now):
		return nil, nil, ErrTokenExpired
	case meta.Used:
		return nil, nil, ErrTokenAlreadyUsed
	}
	return tok, user, nil
}

// Lock order is user row first, then that user's tokens and sessions. Token
// and session reads never lock, so a transaction that starts from a token
// value locks the owner and then re-reads the token.

// lockTokenOwner locks the owner of tok and returns tok as of that lock. It
// fails with store.ErrNotFound when the token was deleted in the meantime;
// the user is nil when the owner is gone.
func lockTokenOwner(ctx context.Context, tx store.Tx, tok token.Token) (token.Token, *account.User, error) {
	users, err := lockUsers(ctx, tx, tok.Base().UserID)
	if err != nil {
		return nil, nil, err
	}
	fresh, err := tx.Tokens().FindByValue(ctx, tok.Base().Value)
	if err != nil {
		return nil, nil, err
	}
	return fresh, users[tok.Base().UserID], nil
}

// lockUsers locks the given users in id order. Missing users are skipped.
func lockUsers(ctx context.Context, tx store.Tx, ids ...uuid.UUID) (map[uuid.UUID]*account.User, error) {
	ids = slices.DeleteFunc(slices.Clone(ids), func(id uuid.UUID) bool { return id == uuid.Nil })
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	users := make(map[uuid.UUID]*account.User, len(ids))
	for _, id := range ids {
		u, err := tx.Users().FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users[id] = u
	}
	return users, nil
}

// issueCredentials replaces every remember token and session the user holds
// with, at most, one fresh remember token and exactly one fresh session.
func (e *Engine) issueCredentials(ctx context.Context, tx store.Tx, user *account.User, remember bool, now time.Time) (*LoginResult, error) {
	if err := tx.Tokens().DeleteAllForUser(ctx, user.ID, token.KindRemember); err != nil {
		return nil, err
	}

	result := &LoginResult{User: user.Snapshot()}
	if remember {
		rt, err := token.New(token.KindRemember, user.ID, now, token.Options{TTL: e.config.Remember.TTL})
		if err != nil {
			return nil, err
		}
		if err := tx.Tokens().Create(ctx, rt); err != nil {
			return nil, err
		}
		result.RememberToken = rt.Base().Value
		result.RememberExpiresAt = rt.Base().ExpiresAt
	}

	if err := tx.Sessions().DeleteAllForUser(ctx, user.ID); err != nil {
		return nil, err
	}
	sess, err := session.New(user.ID, user.Email, now, e.config.Session.TTL)
	if err != nil {
		return nil, err
	}
	if err := tx.Sessions().Create(ctx, sess); err != nil {
		return nil, err
	}
	result.SessionToken = sess.Token
	result.SessionExpiresAt = sess.ExpiresAt

	return result, nil
}

func (e *Engine) sendMail(msg mail.Message) {
	if !e.mailer.Enqueue(msg) {
		e.logger.Warn("mail not queued", "kind", string(msg.Kind), "to", msg.To)
	}
}

func userIDString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
