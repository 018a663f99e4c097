package goAccount

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/password"
)

const (
	minResetCodeLength = 4
	maxResetCodeLength = 12
)

// Config is the complete engine configuration. Start from [DefaultConfig]
// and override what you need; Build rejects values that fail [Config.Validate].
type Config struct {
	Session       SessionConfig       `koanf:"session"`
	Remember      RememberConfig      `koanf:"remember"`
	Signup        SignupConfig        `koanf:"signup"`
	PasswordReset PasswordResetConfig `koanf:"password_reset"`
	Password      PasswordConfig      `koanf:"password"`
	Audit         AuditConfig         `koanf:"audit"`
	Metrics       MetricsConfig       `koanf:"metrics"`
	Mail          MailConfig          `koanf:"mail"`
}

// SessionConfig controls the short-lived "currently logged in" credential.
type SessionConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// RememberConfig controls persistent-login tokens. Every autologin slides
// the expiry by TTL.
type RememberConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

type SignupConfig struct {
	TokenTTL time.Duration `koanf:"token_ttl"`
}

// PasswordResetConfig controls reset tokens, their codes, and request
// throttling.
type PasswordResetConfig struct {
	TokenTTL         time.Duration `koanf:"token_ttl"`
	CodeLength       int           `koanf:"code_length"`
	MaxAttempts      int           `koanf:"max_attempts"`
	RequestLimit     int           `koanf:"request_limit"`
	RequestWindow    time.Duration `koanf:"request_window"`
	EnableIPThrottle bool          `koanf:"enable_ip_throttle"`
}

// PasswordConfig holds the argon2id cost parameters.
type PasswordConfig struct {
	Memory         uint32 `koanf:"memory"`
	Time           uint32 `koanf:"time"`
	Parallelism    uint8  `koanf:"parallelism"`
	SaltLength     uint32 `koanf:"salt_length"`
	KeyLength      uint32 `koanf:"key_length"`
	UpgradeOnLogin bool   `koanf:"upgrade_on_login"`
}

type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
	DropIfFull bool `koanf:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled                 bool `koanf:"enabled"`
	EnableLatencyHistograms bool `koanf:"enable_latency_histograms"`
}

type MailConfig struct {
	QueueSize   int           `koanf:"queue_size"`
	SendTimeout time.Duration `koanf:"send_timeout"`
}

// DefaultConfig returns the production defaults: one-hour sessions,
// 30-day remember tokens, 24-hour signup and reset tokens, six-character
// reset codes locked after three misses, and five reset requests per hour.
func DefaultConfig() Config {
	p := password.DefaultParams()
	return Config{
		Session:  SessionConfig{TTL: time.Hour},
		Remember: RememberConfig{TTL: 30 * 24 * time.Hour},
		Signup:   SignupConfig{TokenTTL: 24 * time.Hour},
		PasswordReset: PasswordResetConfig{
			TokenTTL:      24 * time.Hour,
			CodeLength:    6,
			MaxAttempts:   3,
			RequestLimit:  5,
			RequestWindow: time.Hour,
		},
		Password: PasswordConfig{
			Memory:         p.Memory,
			Time:           p.Time,
			Parallelism:    p.Parallelism,
			SaltLength:     p.SaltLength,
			KeyLength:      p.KeyLength,
			UpgradeOnLogin: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Mail: MailConfig{
			QueueSize:   256,
			SendTimeout: 10 * time.Second,
		},
	}
}

func (c Config) passwordParams() password.Params {
	return password.Params{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Lifetimes
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Remember.TTL <= 0 {
		return errors.New("Remember TTL must be > 0")
	}
	if c.Remember.TTL < c.Session.TTL {
		return errors.New("Remember TTL must be >= Session TTL")
	}
	if c.Signup.TokenTTL <= 0 {
		return errors.New("Signup TokenTTL must be > 0")
	}

	// Password reset
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.PasswordReset.CodeLength < minResetCodeLength || c.PasswordReset.CodeLength > maxResetCodeLength {
		return fmt.Errorf("PasswordReset CodeLength must be between %d and %d", minResetCodeLength, maxResetCodeLength)
	}
	if c.PasswordReset.MaxAttempts <= 0 {
		return errors.New("PasswordReset MaxAttempts must be > 0")
	}
	if c.PasswordReset.RequestLimit <= 0 {
		return errors.New("PasswordReset RequestLimit must be > 0")
	}
	if c.PasswordReset.RequestWindow <= 0 {
		return errors.New("PasswordReset RequestWindow must be > 0")
	}

	// Password hashing
	if err := c.passwordParams().Validate(); err != nil {
		return fmt.Errorf("Password: %w", err)
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Mail.QueueSize <= 0 {
		return errors.New("Mail QueueSize must be > 0")
	}
	if c.Mail.SendTimeout <= 0 {
		return errors.New("Mail SendTimeout must be > 0")
	}
	return nil
}
