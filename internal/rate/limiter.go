package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis transport failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// DefaultPrefix namespaces all counter keys.
const DefaultPrefix = "ga:rl:"

// hitScript increments KEYS[1] and starts the window on the first hit.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Limiter is an atomic fixed-window counter keyed by arbitrary strings.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a [Limiter] backed by the given Redis client. An empty prefix
// selects [DefaultPrefix].
func New(redisClient redis.UniversalClient, prefix string) *Limiter {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Limiter{redis: redisClient, prefix: prefix}
}

// Hit records one attempt against key and returns the count inside the
// current window.
func (l *Limiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if window <= 0 {
		return 0, fmt.Errorf("rate: window must be > 0, got %s", window)
	}
	n, err := hitScript.Run(ctx, l.redis, []string{l.prefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

// Attempts returns the count inside the current window. Missing keys
// count as zero.
func (l *Limiter) Attempts(ctx context.Context, key string) (int64, error) {
	n, err := l.redis.Get(ctx, l.prefix+key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

// TooManyAttempts reports whether key has used up max hits in the current
// window.
func (l *Limiter) TooManyAttempts(ctx context.Context, key string, max int64) (bool, error) {
	n, err := l.Attempts(ctx, key)
	if err != nil {
		return false, err
	}
	return n >= max, nil
}
