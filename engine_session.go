package goAccount

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/store"
)

// ValidateSession returns the active session for value. Missing, unknown and
// expired sessions all fail with ErrSessionInvalid. Nothing is written.
func (e *Engine) ValidateSession(ctx context.Context, value string) (*session.Session, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if value == "" {
		e.metricInc(MetricSessionValidateFailure)
		return nil, ErrSessionInvalid
	}

	now := e.now()
	var sess *session.Session
	err := e.withTx(ctx, "validate_session", func(ctx context.Context, tx store.Tx) error {
		s, err := tx.Sessions().FindByToken(ctx, value)
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionInvalid
		}
		if err != nil {
			return err
		}
		if !s.Active(now) {
			return ErrSessionInvalid
		}
		sess = s
		return nil
	})
	if err != nil {
		e.metricInc(MetricSessionValidateFailure)
		return nil, err
	}
	return sess, nil
}
