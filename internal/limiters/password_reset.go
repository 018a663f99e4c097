package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrResetRateLimited        = errors.New("reset rate limited")
	ErrResetLimiterUnavailable = errors.New("reset limiter unavailable")
)

// Counter is the keyed window counter the limiter counts with.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
	TooManyAttempts(ctx context.Context, key string, max int64) (bool, error)
}

type PasswordResetConfig struct {
	EnableIPThrottle bool
	Window           time.Duration
	MaxAttempts      int
}

type PasswordResetLimiter struct {
	counter Counter
	config  PasswordResetConfig
}

func NewPasswordResetLimiter(counter Counter, cfg PasswordResetConfig) *PasswordResetLimiter {
	return &PasswordResetLimiter{
		counter: counter,
		config:  cfg,
	}
}

// CheckRequest counts one reset request for email (and ip when enabled) and
// returns ErrResetRateLimited once the window budget is spent.
func (l *PasswordResetLimiter) CheckRequest(ctx context.Context, email, ip string) error {
	if l == nil || l.counter == nil {
		return nil
	}
	if err := l.enforceFixedWindow(ctx, requestEmailKey(email)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, requestIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *PasswordResetLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	max := int64(l.config.MaxAttempts)

	over, err := l.counter.TooManyAttempts(ctx, key, max)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResetLimiterUnavailable, err)
	}
	if over {
		return ErrResetRateLimited
	}

	count, err := l.counter.Hit(ctx, key, l.config.Window)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResetLimiterUnavailable, err)
	}
	if count > max {
		return ErrResetRateLimited
	}
	return nil
}

func requestEmailKey(email string) string {
	return "apr:" + email
}

func requestIPKey(ip string) string {
	return "aprip:" + ip
}
