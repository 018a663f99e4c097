package goAccount

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/MrEthical07/goAccount/internal/audit"
)

// AuditEvent is one recorded operation outcome.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

// NewJSONWriterSink writes one JSON event per line to w.
func NewJSONWriterSink(w io.Writer) AuditSink { return audit.NewJSONWriterSink(w) }

// NewSlogAuditSink logs events through logger.
func NewSlogAuditSink(logger *slog.Logger) AuditSink { return audit.NewSlogSink(logger) }

// NewChannelSink buffers events in a channel; read them with Events.
func NewChannelSink(buffer int) *audit.ChannelSink { return audit.NewChannelSink(buffer) }

const (
	auditEventRegister             = "register"
	auditEventVerifyEmail          = "verify_email"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventAutologin            = "autologin"
	auditEventLogout               = "logout"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordResetConfirm = "password_reset_confirm"
	auditEventRateLimitTriggered   = "rate_limit_triggered"
)

const (
	auditErrValidation      = "validation"
	auditErrEmailTaken      = "email_taken"
	auditErrTokenNotFound   = "token_not_found"
	auditErrTokenMismatch   = "token_type_mismatch"
	auditErrTokenExpired    = "token_expired"
	auditErrTokenUsed       = "token_already_used"
	auditErrUserNotFound    = "user_not_found"
	auditErrInvalidPassword = "invalid_password"
	auditErrAccountInvalid  = "account_invalid"
	auditErrUnauthorized    = "unauthorized"
	auditErrInvalidCode     = "invalid_code"
	auditErrRateLimited     = "rate_limited"
	auditErrInternal        = "internal_error"
)

type auditFields struct {
	userID   string
	email    string
	metadata map[string]string
}

func (e *Engine) emitAudit(ctx context.Context, op string, success bool, err error, f auditFields) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Record(ctx, audit.Event{
		Timestamp: e.now().UTC(),
		Operation: op,
		UserID:    f.userID,
		Email:     f.email,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Reason:    auditReason(err),
		Metadata:  f.metadata,
	})
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, email string) {
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, ErrPasswordResetRateLimited, auditFields{
		email:    email,
		metadata: map[string]string{"scope": scope},
	})
}

func auditReason(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrEmailTaken):
		return auditErrEmailTaken
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrTokenNotFound):
		return auditErrTokenNotFound
	case errors.Is(err, ErrTokenTypeMismatch):
		return auditErrTokenMismatch
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenAlreadyUsed):
		return auditErrTokenUsed
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrInvalidPassword):
		return auditErrInvalidPassword
	case errors.Is(err, ErrAccountInvalid), errors.Is(err, ErrUserInvalid):
		return auditErrAccountInvalid
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrSessionInvalid):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCode):
		return auditErrInvalidCode
	case errors.Is(err, ErrPasswordResetRateLimited):
		return auditErrRateLimited
	}
	return auditErrInternal
}
