package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr string `env:"STOREFRONT_LISTEN_ADDR" envDefault:"127.0.0.1:18080"`

	// StoreMode is memory, sqlite or postgres.
	StoreMode   string `env:"STOREFRONT_STORE_MODE"   envDefault:"sqlite"`
	SQLitePath  string `env:"STOREFRONT_SQLITE_PATH"  envDefault:"storefront.db"`
	DatabaseURL string `env:"STOREFRONT_DATABASE_URL"`

	// SessionCache is store or redis.
	SessionCache string `env:"STOREFRONT_SESSION_CACHE" envDefault:"store"`
	RedisAddr    string `env:"STOREFRONT_REDIS_ADDR"    envDefault:"127.0.0.1:6379"`
	RedisPrefix  string `env:"STOREFRONT_REDIS_PREFIX"  envDefault:"storefront:"`

	SessionEncryptionKey string `env:"STOREFRONT_SESSION_ENCRYPTION_KEY"`

	ControlSecret string        `env:"STOREFRONT_CONTROL_SECRET" envDefault:"change-me"`
	JWTSecret     string        `env:"STOREFRONT_JWT_SECRET"     envDefault:"change-this-secret"`
	TokenTTL      time.Duration `env:"STOREFRONT_TOKEN_TTL"      envDefault:"12h"`

	APIBaseURL    string        `env:"STOREFRONT_API_BASE_URL"    envDefault:"https://api.itch.io"`
	APITimeout    time.Duration `env:"STOREFRONT_API_TIMEOUT"     envDefault:"10s"`
	APIMaxRetries int           `env:"STOREFRONT_API_MAX_RETRIES" envDefault:"2"`
	APIRetryBase  time.Duration `env:"STOREFRONT_API_RETRY_BASE"  envDefault:"250ms"`
	APIRetryMax   time.Duration `env:"STOREFRONT_API_RETRY_MAX"   envDefault:"2s"`

	FetchMaxAttempts int `env:"STOREFRONT_FETCH_MAX_ATTEMPTS" envDefault:"3"`

	Language    string `env:"STOREFRONT_LANG"         envDefault:"en"`
	LocalesPath string `env:"STOREFRONT_LOCALES_PATH"`

	LogActions bool `env:"STOREFRONT_LOG_ACTIONS" envDefault:"false"`
}

// Load reads configuration from the process environment, using values from
// the .env-style file at dotenvPath for variables the environment lacks.
func Load(dotenvPath string) (Config, error) {
	merged := map[string]string{}
	if dotenvPath != "" {
		fileVars, err := ReadDotEnv(dotenvPath)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", dotenvPath, err)
		}
		for k, v := range fileVars {
			merged[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: merged}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreMode {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("STOREFRONT_STORE_MODE: unknown mode %q", c.StoreMode)
	}
	switch c.SessionCache {
	case "store", "redis":
	default:
		return fmt.Errorf("STOREFRONT_SESSION_CACHE: unknown mode %q", c.SessionCache)
	}
	if c.FetchMaxAttempts < 1 {
		return fmt.Errorf("STOREFRONT_FETCH_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}
