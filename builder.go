package goAccount

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/limiters"
	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/store"
)

const dummyPassword = "goaccount-timing-equalizer"

// Builder assembles an [Engine]. A Builder is single use.
type Builder struct {
	config Config
	store  store.Store
	redis  redis.UniversalClient

	limiter   RateLimiter
	notifier  mail.Notifier
	logger    *slog.Logger
	auditSink AuditSink
	clock     func() time.Time

	passwordRules []PasswordRule
	nameRules     []NameRule

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the transactional store. Required.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis backs the reset-request limiter with Redis counters. Ignored
// when WithRateLimiter is also used.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithRateLimiter(l RateLimiter) *Builder {
	b.limiter = l
	return b
}

// WithMailer sets the notifier used for verification and reset mail. The
// default logs messages without sending them.
func (b *Builder) WithMailer(n mail.Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go. It has no effect unless
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides time.Now, mainly for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithPasswordRules(rules ...PasswordRule) *Builder {
	b.passwordRules = append(b.passwordRules, rules...)
	return b
}

func (b *Builder) WithNameRules(rules ...NameRule) *Builder {
	b.nameRules = append(b.nameRules, rules...)
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and starts the mail and audit
// goroutines. Call [Engine.Close] on shutdown.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("store required")
	}

	limiter := b.limiter
	if limiter == nil {
		if b.redis == nil {
			return nil, errors.New("rate limiter or redis client required")
		}
		limiter = rate.New(b.redis, "")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	hasher, err := password.NewArgon2id(cfg.passwordParams())
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics(cfg.Metrics)

	notifier := b.notifier
	if notifier == nil {
		notifier = mail.NewLogNotifier(logger)
	}

	engine := &Engine{
		config:    cfg,
		store:     b.store,
		hasher:    hasher,
		dummyHash: dummyHash,
		resetLimiter: limiters.NewPasswordResetLimiter(limiter, limiters.PasswordResetConfig{
			EnableIPThrottle: cfg.PasswordReset.EnableIPThrottle,
			Window:           cfg.PasswordReset.RequestWindow,
			MaxAttempts:      cfg.PasswordReset.RequestLimit,
		}),
		metrics:       metrics,
		logger:        logger,
		now:           clock,
		passwordRules: append([]PasswordRule(nil), b.passwordRules...),
		nameRules:     append([]NameRule(nil), b.nameRules...),
	}

	engine.mailer = mail.NewDispatcher(notifier,
		mail.Config{QueueSize: cfg.Mail.QueueSize, SendTimeout: cfg.Mail.SendTimeout},
		mail.WithLogger(logger),
		mail.WithDropHook(func(mail.Message) { metrics.Inc(MetricMailDropped) }),
		mail.WithFailureHook(func(mail.Message, error) { metrics.Inc(MetricMailFailed) }),
	)
	engine.audit = audit.NewDispatcher(
		audit.Config{Enabled: cfg.Audit.Enabled, BufferSize: cfg.Audit.BufferSize, DropIfFull: cfg.Audit.DropIfFull},
		b.auditSink,
		audit.WithDropHook(func(audit.Event) { metrics.Inc(MetricAuditDropped) }),
	)

	b.built = true
	return engine, nil
}
