package sessionauth

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/sessionauth/internal/limiters"
	"github.com/MrEthical07/sessionauth/internal/stores"
	"github.com/MrEthical07/sessionauth/password"
	"github.com/MrEthical07/sessionauth/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     UserStore
	notifier  Notifier
	hasher    password.Hasher
	logger    *slog.Logger
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New starts from [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the key-value store. Cluster and failover clients work as
// long as they satisfy redis.UniversalClient.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

// WithNotifier sets the outbound mailer. Without one, verification messages
// are discarded.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithHasher overrides the hasher derived from Config.Password.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, requires a Redis client and a user
// store, and starts the audit dispatcher when auditing is enabled.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	hasher := b.hasher
	if hasher == nil {
		h, err := newConfiguredHasher(cfg.Password)
		if err != nil {
			return nil, err
		}
		hasher = h
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = discardNotifier{}
	}

	// -------- SESSIONS --------
	records := session.NewStore(b.redis, cfg.Session.KeyPrefix, cfg.Session.MaxAge)
	renewal := session.NewRenewalPolicy(cfg.Session.RenewalThreshold, logger)

	engine := &Engine{
		config:   cfg,
		redis:    b.redis,
		users:    b.users,
		sessions: records,
		registry: session.NewRegistry(b.redis, records),
		renewal:  renewal,
		hasher:   hasher,
		notifier: notifier,
		logger:   logger,
	}

	// -------- VERIFICATION --------
	engine.verification = stores.NewVerificationStore(b.redis)
	engine.resend = limiters.NewResendLimiter(b.redis, limiters.ResendConfig{
		MaxAttempts: cfg.Verification.ResendMaxAttempts,
		Window:      cfg.Verification.ResendWindow,
	})

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}

// newConfiguredHasher hashes new passwords with the configured algorithm and
// keeps the other one available for verifying existing hashes.
func newConfiguredHasher(cfg PasswordConfig) (password.Hasher, error) {
	bc, err := password.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	argon, err := password.NewArgon2(cfg.Argon2)
	if err != nil {
		return nil, err
	}

	if cfg.Algorithm == PasswordArgon2id {
		return password.Chain{argon, bc}, nil
	}
	return password.Chain{bc, argon}, nil
}
