package authcore

import (
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. It is single-use: Build may succeed once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	sessionStore session.Store
	userProvider UserProvider
	auditSink    AuditSink
	logger       *slog.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied, so later changes by
// the caller have no effect.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client used for login throttling and, when no
// session store is set, for a [session.RedisStore].
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessionStore = store
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for operational messages. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock injects the time source shared by the token codec, the flows and
// session timestamps. Defaults to time.Now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
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

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	store := b.sessionStore
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("session store or redis client required")
		}
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.Retention)
	}
	if cfg.Security.EnableLoginThrottle && b.redis == nil {
		return nil, errors.New("login throttling requires redis client")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	jm, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
	}, now)
	if err != nil {
		return nil, err
	}

	primary, err := password.NewArgon2(cfg.Password.argon2())
	if err != nil {
		return nil, err
	}
	var legacy []password.Verifier
	if cfg.Password.AcceptBcrypt {
		legacy = append(legacy, password.NewBcrypt(cfg.Password.BcryptCost))
	}

	engine := &Engine{
		config:       cfg,
		now:          now,
		logger:       logger,
		jwtManager:   jm,
		sessionStore: store,
		userProvider: b.userProvider,
		passwords:    password.NewMulti(primary, legacy...),
		metrics:      NewMetrics(cfg.Metrics),
	}

	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Session.RedisPrefix,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop: func(ev internalaudit.Event) {
			logger.Warn("authcore: audit event dropped", "event_type", ev.EventType, "user_id", ev.UserID)
		},
	}, b.auditSink)

	engine.buildFlows()

	b.built = true
	return engine, nil
}
