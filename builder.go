package secureauthx

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"

	internalaudit "github.com/secureauthx/secureauthx/internal/audit"
	"github.com/secureauthx/secureauthx/internal/flows"
	"github.com/secureauthx/secureauthx/internal/rate"
	"github.com/secureauthx/secureauthx/jwt"
	"github.com/secureauthx/secureauthx/password"
)

// dummyPassword is hashed once per Engine so logins for unknown emails spend
// the same KDF cost as real ones.
const dummyPassword = "secureauthx-timing-equalizer"

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config

	directory   UserDirectory
	ledger      Ledger
	rateLimiter RateLimiter
	auditSink   AuditSink
	logger      hclog.Logger
	now         func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithUserDirectory sets the identity store. Required.
func (b *Builder) WithUserDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithLedger sets the session ledger. Required.
func (b *Builder) WithLedger(ledger Ledger) *Builder {
	b.ledger = ledger
	return b
}

// WithRateLimiter replaces the in-process sliding-window limiter.
func (b *Builder) WithRateLimiter(limiter RateLimiter) *Builder {
	b.rateLimiter = limiter
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the operational logger. Defaults to a null logger.
func (b *Builder) WithLogger(logger hclog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for token issuance, ledger timestamps and rate
// limiting. Intended for tests.
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

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if b.ledger == nil {
		return nil, errors.New("session ledger required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	jm, err := jwt.NewManager(cfg.JWT.managerConfig(now))
	if err != nil {
		return nil, err
	}

	ph, err := password.NewArgon2(cfg.Password.hasherConfig(cfg.Policy.MaxPasswordBytes))
	if err != nil {
		return nil, err
	}
	dummyHash, err := ph.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	limiter := b.rateLimiter
	if limiter == nil {
		limiter = rate.New(now)
	}

	engine := &Engine{
		config:       cfg,
		directory:    b.directory,
		ledger:       b.ledger,
		rateLimiter:  limiter,
		passwordHash: ph,
		jwtManager:   jm,
		metrics:      NewMetrics(cfg.Metrics),
		logger:       logger.Named("engine"),
		now:          now,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     engine.logger.Named("audit"),
	}, b.auditSink)
	engine.flows = flows.New(engine.flowDeps(dummyHash))

	b.built = true

	return engine, nil
}

func (e *Engine) flowDeps(dummyHash string) flows.Deps {
	identities := flows.IdentityLookup{
		FindByEmail: e.findIdentityByEmail,
		FindByID:    e.findIdentityByID,
		IsNotFound: func(err error) bool {
			return errors.Is(err, ErrUserNotFound)
		},
	}
	pair := flows.PairDeps{
		IssueAccess:  e.jwtManager.IssueAccess,
		IssueRefresh: e.jwtManager.IssueRefresh,
		Ledger:       e.ledger,
		Now:          e.now,
	}

	return flows.Deps{
		Register: flows.RegisterDeps{
			NormalizeEmail: normalizeEmail,
			CheckPassword:  e.checkPasswordPolicy,
			Identities:     identities,
			Create:         e.createIdentity,
			IsDuplicate: func(err error) bool {
				return errors.Is(err, ErrAlreadyRegistered)
			},
			Hash: e.passwordHash.Hash,
			Pair: pair,
		},
		Login: flows.LoginDeps{
			NormalizeEmail: normalizeEmail,
			Identities:     identities,
			Verify:         e.passwordHash.Verify,
			DummyHash:      dummyHash,
			Pair:           pair,
		},
		Refresh: flows.RefreshDeps{
			ParseRefresh: e.jwtManager.ParseRefresh,
			Identities:   identities,
			Ledger:       e.ledger,
			Pair:         pair,
			Now:          e.now,
		},
		Logout: flows.LogoutDeps{
			ParseRefresh: e.jwtManager.ParseRefresh,
			Ledger:       e.ledger,
		},
		Validate: flows.ValidateDeps{
			ParseAccess: e.jwtManager.ParseAccess,
			Identities:  identities,
		},
	}
}

func (e *Engine) findIdentityByEmail(ctx context.Context, email string) (*flows.Identity, error) {
	user, err := e.directory.FindByEmail(ctx, email)
	return toFlowIdentity(user, err)
}

func (e *Engine) findIdentityByID(ctx context.Context, id int64) (*flows.Identity, error) {
	user, err := e.directory.FindByID(ctx, id)
	return toFlowIdentity(user, err)
}

func (e *Engine) createIdentity(ctx context.Context, email, passwordHash string) (*flows.Identity, error) {
	user, err := e.directory.Create(ctx, email, passwordHash)
	if err == nil && user == nil {
		return nil, errors.New("user directory returned no identity")
	}
	return toFlowIdentity(user, err)
}

// toFlowIdentity treats a (nil, nil) directory answer as not found.
func toFlowIdentity(user *Identity, err error) (*flows.Identity, error) {
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return &flows.Identity{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		IsAdmin:      user.IsAdmin,
		IsActive:     user.IsActive,
	}, nil
}
