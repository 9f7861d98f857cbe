package secureauthx

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	internalaudit "github.com/secureauthx/secureauthx/internal/audit"
	"github.com/secureauthx/secureauthx/internal/flows"
	"github.com/secureauthx/secureauthx/jwt"
	"github.com/secureauthx/secureauthx/password"
)

// Engine issues, validates, rotates and revokes tokens. It is safe for
// concurrent use once returned by Builder.Build.
type Engine struct {
	config       Config
	directory    UserDirectory
	ledger       Ledger
	rateLimiter  RateLimiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	jwtManager   *jwt.Manager
	flows        flows.Service
	logger       hclog.Logger
	now          func() time.Time
}

// Close flushes pending audit events. The Engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AccessTTL and RefreshTTL expose the configured token lifetimes.
func (e *Engine) AccessTTL() time.Duration  { return e.config.JWT.AccessTTL }
func (e *Engine) RefreshTTL() time.Duration { return e.config.JWT.RefreshTTL }

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// ValidateAccess checks an access token and returns the identity it belongs
// to. Access tokens are not looked up in the ledger, so a token stays valid
// until it expires even after logout. Every failure is ErrUnauthorized.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*IdentityView, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	res := e.flows.Validate(ctx, tokenStr)
	if res.Failure != flows.ValidateFailureNone {
		e.metricInc(MetricValidateFailure)
		if res.Failure == flows.ValidateFailureIdentityLookup {
			e.logger.Warn("identity lookup failed during access validation", "error", res.Err)
		}
		return nil, ErrUnauthorized
	}

	e.metricInc(MetricValidateSuccess)
	return flowIdentityView(res.Identity), nil
}

// RequireAdmin is ValidateAccess followed by an admin check. Valid tokens of
// non-admin identities yield ErrAdminRequired.
func (e *Engine) RequireAdmin(ctx context.Context, tokenStr string) (*IdentityView, error) {
	view, err := e.ValidateAccess(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	if !view.IsAdmin {
		e.metricInc(MetricAdminDenied)
		e.emitAudit(ctx, auditEventAdminDenied, false, view.ID, "", ErrAdminRequired, nil)
		return nil, ErrAdminRequired
	}
	return view, nil
}

func flowIdentityView(id *flows.Identity) *IdentityView {
	return &IdentityView{
		ID:       id.ID,
		Email:    id.Email,
		IsAdmin:  id.IsAdmin,
		IsActive: id.IsActive,
	}
}

func tokenPair(p flows.Pair) *TokenPair {
	return &TokenPair{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        "bearer",
		AccessExpiresAt:  p.Access.ExpiresAt,
		RefreshExpiresAt: p.Refresh.ExpiresAt,
	}
}
