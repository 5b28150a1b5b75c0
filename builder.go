package authcore

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/talentyard/authcore/internal/flows"
	"github.com/talentyard/authcore/internal/metrics"
	"github.com/talentyard/authcore/internal/stores"
	"github.com/talentyard/authcore/password"
	"github.com/talentyard/authcore/social"
	"github.com/talentyard/authcore/token"
)

// Builder assembles an Engine. User store, cache (or a Redis client), and
// notifier are required; logger, meter, and social providers are optional.
type Builder struct {
	cfg       Config
	userStore UserStore
	cache     KV
	redis     redis.UniversalClient
	notifier  Notifier
	logger    *zap.Logger
	meter     metric.Meter
	providers map[social.Name]social.Provider
}

func New() *Builder {
	return &Builder{
		cfg:       DefaultConfig(),
		providers: map[social.Name]social.Provider{},
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg.withDefaults()
	return b
}

func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// WithRedis supplies the cache through a go-redis client. Overridden by
// WithCache if both are set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithCache(kv KV) *Builder {
	b.cache = kv
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithMeter(m metric.Meter) *Builder {
	b.meter = m
	return b
}

func (b *Builder) WithSocialProvider(name social.Name, p social.Provider) *Builder {
	b.providers[name] = p
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userStore == nil {
		return nil, errors.New("build: user store is required")
	}
	if b.notifier == nil {
		return nil, errors.New("build: notifier is required")
	}
	kv := b.cache
	if kv == nil && b.redis != nil {
		kv = NewRedisCache(b.redis)
	}
	if kv == nil {
		return nil, errors.New("build: cache (or redis client) is required")
	}

	hasher, err := password.NewArgon2(b.cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	var m *metrics.Metrics
	if b.meter != nil {
		m, err = metrics.New(b.meter)
		if err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	totpCfg := b.cfg.TOTP
	if totpCfg.Issuer == "" {
		totpCfg.Issuer = b.cfg.Issuer
	}

	deps := &flows.Deps{
		Users:    b.userStore,
		Notifier: b.notifier,
		Hasher:   hasher,
		TOTP:     newTOTPEngine(totpCfg),
		Codec:    token.New(b.cfg.Issuer),
		Pending:  stores.NewPendingSecretStore(kv),
		Resets:   stores.NewResetTokenStore(kv),
		Social:   b.providers,
		Metrics:  m,
		Log:      logger,
		Settings: flows.Settings{
			TokenSecret:         []byte(b.cfg.TokenSecret),
			Audience:            b.cfg.Audience,
			SessionTTL:          b.cfg.SessionTTL,
			TransitionalTTL:     b.cfg.TransitionalTTL,
			CacheTTL:            b.cfg.CacheTTL,
			FailedAttemptsLimit: b.cfg.FailedAttemptsLimit,
			RecoveryCodes:       b.cfg.RecoveryCodes,
			TOTPIssuer:          totpCfg.Issuer,
		},
	}
	return &Engine{deps: deps}, nil
}
