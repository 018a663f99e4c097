// Package mail delivers verification and password-reset messages.
//
// Delivery is best effort. The engine hands messages to a [Dispatcher] only
// after its transaction commits; the dispatcher sends them on its own
// goroutine, logs failures, and never reports them back to the caller.
package mail

import (
	"context"
	"log/slog"
)

// Kind selects the message template.
type Kind string

const (
	KindVerifySignup  Kind = "verify_signup"
	KindPasswordReset Kind = "password_reset"
)

// Message is one outbound notification. Token is the plaintext link value;
// Code is set for password resets only.
type Message struct {
	To     string
	Name   string
	Locale string
	Kind   Kind
	Token  string
	Code   string
}

// Notifier sends one message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// LogNotifier writes messages to a logger instead of sending them. Secrets
// are never logged; only their presence is.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "mail queued for delivery",
		"kind", string(msg.Kind),
		"to", msg.To,
		"locale", msg.Locale,
		"has_token", msg.Token != "",
		"has_code", msg.Code != "",
	)
	return nil
}
