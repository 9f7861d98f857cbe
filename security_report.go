package secureauthx

import (
	"time"

	"github.com/secureauthx/secureauthx/session"
)

// SecurityReport summarizes the security-relevant posture of a built Engine.
// It carries no secrets and is safe to log.
type SecurityReport struct {
	SigningAlgorithm   string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	Leeway             time.Duration
	Argon2             PasswordConfigReport
	PasswordUpgrade    bool
	RateLimitingActive bool
	RateLimits         map[Operation]Budget
	AtomicRotation     bool
	RevokeAllSupported bool
	AuditEnabled       bool
	MetricsEnabled     bool
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport reports how e was configured. AtomicRotation is false when the
// ledger falls back to a revoke followed by a separate insert.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	_, atomicRotation := e.ledger.(session.Rotator)
	_, revokeAll := e.ledger.(session.IdentityRevoker)

	report := SecurityReport{
		SigningAlgorithm: e.config.JWT.SigningMethod,
		AccessTTL:        e.config.JWT.AccessTTL,
		RefreshTTL:       e.config.JWT.RefreshTTL,
		Leeway:           e.config.JWT.Leeway,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		PasswordUpgrade:    e.config.Password.UpgradeOnLogin,
		RateLimitingActive: e.config.RateLimit.Enabled && e.rateLimiter != nil,
		AtomicRotation:     atomicRotation,
		RevokeAllSupported: revokeAll,
		AuditEnabled:       e.config.Audit.Enabled,
		MetricsEnabled:     e.config.Metrics.Enabled,
	}
	if report.RateLimitingActive {
		report.RateLimits = make(map[Operation]Budget, 4)
		for _, op := range []Operation{OpRegister, OpLogin, OpRefresh, OpLogout} {
			report.RateLimits[op] = e.config.RateLimit.Budget(op)
		}
	}
	return report
}
