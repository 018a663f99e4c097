package main

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/httpapi"
)

type appConfig struct {
	HTTP     httpConfig       `koanf:"http"`
	Database databaseConfig   `koanf:"database"`
	Redis    redisConfig      `koanf:"redis"`
	Log      logConfig        `koanf:"log"`
	Cookie   cookieConfig     `koanf:"cookie"`
	Purge    purgeConfig      `koanf:"purge"`
	Account  goAccount.Config `koanf:"account"`
}

type httpConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type databaseConfig struct {
	URL          string        `koanf:"url"`
	ConnectRetry time.Duration `koanf:"connect_retry"`
	AutoMigrate  bool          `koanf:"auto_migrate"`
}

type redisConfig struct {
	URL    string `koanf:"url"`
	Prefix string `koanf:"prefix"`
}

type logConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

type cookieConfig struct {
	Name     string `koanf:"name"`
	Path     string `koanf:"path"`
	Domain   string `koanf:"domain"`
	Secure   bool   `koanf:"secure"`
	SameSite string `koanf:"same_site"`
}

type purgeConfig struct {
	Retention time.Duration `koanf:"retention"`
}

func defaultAppConfig() appConfig {
	cookie := httpapi.DefaultCookieConfig()
	return appConfig{
		HTTP:     httpConfig{Addr: ":8080", ShutdownTimeout: 15 * time.Second},
		Database: databaseConfig{ConnectRetry: 30 * time.Second},
		Redis:    redisConfig{Prefix: "ga:rl:"},
		Log:      logConfig{Format: "json", Level: "info"},
		Cookie: cookieConfig{
			Name:     cookie.Name,
			Path:     cookie.Path,
			Secure:   cookie.Secure,
			SameSite: "lax",
		},
		Purge:   purgeConfig{Retention: 7 * 24 * time.Hour},
		Account: goAccount.DefaultConfig(),
	}
}

// registerFlags declares the overrides; names are koanf keys.
func registerFlags(fs *pflag.FlagSet) {
	def := defaultAppConfig()
	fs.String("http.addr", def.HTTP.Addr, "HTTP listen address")
	fs.String("database.url", "", "PostgreSQL URL (default $DATABASE_URL)")
	fs.Bool("database.auto_migrate", false, "apply migrations on serve")
	fs.String("redis.url", "", "Redis URL (default $REDIS_URL)")
	fs.String("log.format", def.Log.Format, "log format: json or text")
	fs.String("log.level", def.Log.Level, "log level: debug, info, warn, error")
	fs.Duration("account.session.ttl", def.Account.Session.TTL, "session lifetime")
	fs.Bool("account.audit.enabled", def.Account.Audit.Enabled, "emit audit events to the log")
}

// loadConfig layers defaults, the YAML file at path, changed flags, and
// finally DATABASE_URL and REDIS_URL from the environment or .env for
// whatever is still unset.
func loadConfig(path string, fs *pflag.FlagSet) (appConfig, error) {
	cfg := defaultAppConfig()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}
	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return cfg, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return cfg, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	// A missing .env file is normal outside development.
	_ = godotenv.Load()
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = os.Getenv("REDIS_URL")
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c appConfig) validate() error {
	if _, err := parseSameSite(c.Cookie.SameSite); err != nil {
		return err
	}
	if c.Purge.Retention < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("purge.retention must be >= 0")
	}
	if err := c.Account.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}

func (c appConfig) cookie() httpapi.CookieConfig {
	sameSite, _ := parseSameSite(c.Cookie.SameSite)
	return httpapi.CookieConfig{
		Name:     c.Cookie.Name,
		Path:     c.Cookie.Path,
		Domain:   c.Cookie.Domain,
		Secure:   c.Cookie.Secure,
		SameSite: sameSite,
	}
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(s) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, oops.Code("CONFIG_INVALID").With("same_site", s).Errorf("unknown cookie same_site %q", s)
}
