package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/talentyard/authcore/password"
)

// Config tunes the engine. Zero values are filled from DefaultConfig by the
// builder, except TokenSecret which must always be supplied.
type Config struct {
	// TokenSecret signs every issued token. Minimum 32 bytes.
	TokenSecret string `env:"AUTH_TOKEN_SECRET"`

	// Issuer and Audience are stamped on and required from every token.
	Issuer   string `env:"AUTH_TOKEN_ISSUER"`
	Audience string `env:"AUTH_TOKEN_AUDIENCE"`

	// SessionTTL bounds full session tokens; TransitionalTTL bounds the
	// short-lived mid-flow tokens (2FA pending, reset pending).
	SessionTTL      time.Duration `env:"AUTH_SESSION_TTL, default=24h"`
	TransitionalTTL time.Duration `env:"AUTH_TRANSITIONAL_TTL, default=10m"`

	// CacheTTL bounds pending 2FA secrets and reset tokens in the cache.
	CacheTTL time.Duration `env:"AUTH_CACHE_TTL, default=1h"`

	// FailedAttemptsLimit is the failure count beyond which an account
	// locks. The lock lands on the attempt after the limit.
	FailedAttemptsLimit int `env:"AUTH_FAILED_ATTEMPTS_LIMIT, default=10"`

	// RecoveryCodes is the size of the one-time recovery set minted at 2FA
	// setup.
	RecoveryCodes int `env:"AUTH_RECOVERY_CODES, default=10"`

	TOTP     TOTPConfig
	Password password.Config
}

// DefaultConfig returns production defaults for everything but TokenSecret.
func DefaultConfig() Config {
	return Config{
		Issuer:              "authcore",
		SessionTTL:          24 * time.Hour,
		TransitionalTTL:     10 * time.Minute,
		CacheTTL:            time.Hour,
		FailedAttemptsLimit: 10,
		RecoveryCodes:       10,
		Password:            password.DefaultConfig(),
	}
}

// ConfigFromEnv reads Config from AUTH_* environment variables.
func ConfigFromEnv(ctx context.Context) (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first configuration problem.
func (c Config) Validate() error {
	if len(c.TokenSecret) < 32 {
		return errors.New("config: token secret must be at least 32 bytes")
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: session ttl must be positive")
	}
	if c.TransitionalTTL <= 0 {
		return errors.New("config: transitional ttl must be positive")
	}
	if c.CacheTTL <= 0 {
		return errors.New("config: cache ttl must be positive")
	}
	if c.FailedAttemptsLimit < 1 {
		return errors.New("config: failed attempts limit must be at least 1")
	}
	if c.RecoveryCodes < 1 {
		return errors.New("config: recovery code count must be at least 1")
	}
	return nil
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Issuer == "" {
		c.Issuer = def.Issuer
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = def.SessionTTL
	}
	if c.TransitionalTTL == 0 {
		c.TransitionalTTL = def.TransitionalTTL
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = def.CacheTTL
	}
	if c.FailedAttemptsLimit == 0 {
		c.FailedAttemptsLimit = def.FailedAttemptsLimit
	}
	if c.RecoveryCodes == 0 {
		c.RecoveryCodes = def.RecoveryCodes
	}
	if c.Password == (password.Config{}) {
		c.Password = def.Password
	}
	return c
}
