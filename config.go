package secureauthx

import (
	"errors"
	"fmt"
	"time"

	"github.com/secureauthx/secureauthx/internal/rate"
	"github.com/secureauthx/secureauthx/jwt"
	"github.com/secureauthx/secureauthx/password"
)

// Config is the full Engine configuration. Start from DefaultConfig and
// override fields; Builder.Build calls Validate.
type Config struct {
	JWT       JWTConfig
	Password  PasswordConfig
	Policy    PolicyConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing and lifetimes. AccessTTL and RefreshTTL
// must be whole seconds because token timestamps have second precision.
type JWTConfig struct {
	Issuer        string
	SigningMethod string // "hs256" (default), "hs384", "hs512" or "ed25519"
	Secret        []byte
	PrivateKey    []byte
	PublicKey     []byte
	KeyID         string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// UpgradeOnLogin rehashes legacy or weaker hashes after a successful login
	// when the UserDirectory implements PasswordRehasher.
	UpgradeOnLogin bool
}

/*
====================================
POLICY CONFIG
====================================
*/

// PolicyConfig bounds new passwords, measured in bytes.
type PolicyConfig struct {
	MinPasswordBytes int
	MaxPasswordBytes int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// Budget allows MaxRequests per client inside any Window-long interval.
type Budget struct {
	MaxRequests int
	Window      time.Duration
}

type RateLimitConfig struct {
	Enabled  bool
	Register Budget
	Login    Budget
	Refresh  Budget
	Logout   Budget
}

// Budget returns the budget configured for op.
func (c RateLimitConfig) Budget(op Operation) Budget {
	switch op {
	case OpRegister:
		return c.Register
	case OpLogin:
		return c.Login
	case OpRefresh:
		return c.Refresh
	case OpLogout:
		return c.Logout
	default:
		return Budget{}
	}
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

const maxLeeway = 2 * time.Minute

// DefaultConfig returns production defaults. JWT.Secret is left empty and
// must be supplied.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	window := time.Minute

	return Config{
		JWT: JWTConfig{
			Issuer:        "secureauthx",
			SigningMethod: string(jwt.MethodHS256),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:      pw.Memory,
			Time:        pw.Time,
			Parallelism: pw.Parallelism,
			SaltLength:  pw.SaltLength,
			KeyLength:   pw.KeyLength,
		},
		Policy: PolicyConfig{
			MinPasswordBytes: 8,
			MaxPasswordBytes: 128,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Register: Budget{MaxRequests: 10, Window: window},
			Login:    Budget{MaxRequests: 15, Window: window},
			Refresh:  Budget{MaxRequests: 30, Window: window},
			Logout:   Budget{MaxRequests: 30, Window: window},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func (c PasswordConfig) hasherConfig(maxBytes int) password.Config {
	return password.Config{
		Memory:           c.Memory,
		Time:             c.Time,
		Parallelism:      c.Parallelism,
		SaltLength:       c.SaltLength,
		KeyLength:        c.KeyLength,
		MaxPasswordBytes: maxBytes,
	}
}

func (c JWTConfig) managerConfig(now func() time.Time) jwt.Config {
	return jwt.Config{
		Issuer:        c.Issuer,
		SigningMethod: jwt.SigningMethod(c.SigningMethod),
		Secret:        cloneBytes(c.Secret),
		PrivateKey:    cloneBytes(c.PrivateKey),
		PublicKey:     cloneBytes(c.PublicKey),
		KeyID:         c.KeyID,
		AccessTTL:     c.AccessTTL,
		RefreshTTL:    c.RefreshTTL,
		Leeway:        c.Leeway,
		Now:           now,
	}
}

func cloneConfig(cfg Config) Config {
	cfg.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	cfg.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	cfg.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return cfg
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid field. Token and hasher parameters are
// checked again by their constructors during Build.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.Issuer == "" {
		return errors.New("JWT Issuer must be set")
	}
	if c.JWT.AccessTTL < time.Second || c.JWT.AccessTTL%time.Second != 0 {
		return errors.New("JWT AccessTTL must be a positive whole number of seconds")
	}
	if c.JWT.RefreshTTL < time.Second || c.JWT.RefreshTTL%time.Second != 0 {
		return errors.New("JWT RefreshTTL must be a positive whole number of seconds")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > maxLeeway {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Policy
	if c.Policy.MinPasswordBytes < 1 {
		return errors.New("Policy MinPasswordBytes must be >= 1")
	}
	if c.Policy.MaxPasswordBytes < c.Policy.MinPasswordBytes {
		return errors.New("Policy MaxPasswordBytes must be >= MinPasswordBytes")
	}
	if c.Policy.MaxPasswordBytes > password.DefaultMaxPasswordBytes {
		return fmt.Errorf("Policy MaxPasswordBytes must be <= %d", password.DefaultMaxPasswordBytes)
	}

	// Rate limits
	if c.RateLimit.Enabled {
		for _, op := range []Operation{OpRegister, OpLogin, OpRefresh, OpLogout} {
			b := c.RateLimit.Budget(op)
			if err := rate.Validate(b.MaxRequests, b.Window); err != nil {
				return fmt.Errorf("RateLimit %s: %w", op, err)
			}
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
