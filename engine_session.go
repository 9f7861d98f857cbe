package secureauthx

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/secureauthx/secureauthx/internal/flows"
	"github.com/secureauthx/secureauthx/jwt"
)

// Refresh redeems a refresh token for a new pair. Each refresh token can be
// redeemed once; of several concurrent calls with the same token exactly one
// succeeds. Every rejection is ErrUnauthorized so callers cannot tell a replay
// from an unknown token.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if err := e.allow(ctx, OpRefresh, MetricRefreshRateLimited); err != nil {
		return nil, err
	}

	res := e.flows.Refresh(ctx, refreshToken)
	if res.Failure != flows.RefreshFailureNone {
		e.metricInc(MetricRefreshFailure)
		eventType := auditEventRefreshInvalid
		if res.Failure.Replay() {
			e.metricInc(MetricRefreshReplayDetected)
			eventType = auditEventRefreshReplay
		}
		if res.Failure == flows.RefreshFailureRecordLookup || res.Failure == flows.RefreshFailurePersist {
			e.logger.Warn("refresh storage failure", "reason", res.Failure.Reason(), "error", res.Err)
		}

		auditErr := ErrUnauthorized
		if res.Err != nil && (errors.Is(res.Err, jwt.ErrExpiredToken) || errors.Is(res.Err, jwt.ErrInvalidToken)) {
			auditErr = res.Err
		}
		e.emitAudit(ctx, eventType, false, res.IdentityID, res.OldTokenID, auditErr, func() map[string]string {
			return map[string]string{"reason": res.Failure.Reason()}
		})
		return nil, ErrUnauthorized
	}

	e.metricInc(MetricRefreshSuccess)
	e.metricInc(MetricSessionRevoked)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.IdentityID, res.Pair.Record.TokenID, nil, func() map[string]string {
		return map[string]string{"previous_token_id": shortTokenID(res.OldTokenID)}
	})
	return tokenPair(res.Pair), nil
}

// Logout revokes the ledger record behind refreshToken. It is idempotent:
// unknown, malformed, expired and already revoked tokens all succeed. The only
// error it returns is a *RateLimitError.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if err := e.allow(ctx, OpLogout, MetricLogoutRateLimited); err != nil {
		return err
	}

	res := e.flows.Logout(ctx, refreshToken)
	e.metricInc(MetricLogout)

	switch res.Outcome {
	case flows.LogoutRevoked:
		e.metricInc(MetricSessionRevoked)
		e.emitAudit(ctx, auditEventLogoutSession, true, res.IdentityID, res.TokenID, nil, nil)
	case flows.LogoutStorageError:
		e.logger.Warn("logout revoke failed", "identity_id", res.IdentityID, "error", res.Err)
		e.emitAudit(ctx, auditEventLogoutSession, false, res.IdentityID, res.TokenID,
			fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err), nil)
	default:
		e.emitAudit(ctx, auditEventLogoutSession, true, res.IdentityID, res.TokenID, nil, func() map[string]string {
			return map[string]string{"outcome": logoutOutcome(res.Outcome)}
		})
	}
	return nil
}

// RevokeAllSessions revokes every active refresh record of identityID and
// returns how many were revoked. Access tokens already issued stay valid
// until they expire.
func (e *Engine) RevokeAllSessions(ctx context.Context, identityID int64) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}

	res := e.flows.RevokeAll(ctx, identityID)
	switch res.Outcome {
	case flows.RevokeAllUnsupported:
		return 0, ErrRevokeAllUnsupported
	case flows.RevokeAllStorageError:
		err := fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		e.emitAudit(ctx, auditEventLogoutAll, false, identityID, "", err, nil)
		return 0, err
	}
	n := res.Revoked

	e.metricInc(MetricLogoutAll)
	e.metrics.Add(MetricSessionRevoked, uint64(n))
	e.emitAudit(ctx, auditEventLogoutAll, true, identityID, "", nil, func() map[string]string {
		return map[string]string{"revoked": strconv.Itoa(n)}
	})
	return n, nil
}

func logoutOutcome(o flows.LogoutOutcome) string {
	switch o {
	case flows.LogoutAlreadyRevoked:
		return "already_revoked"
	case flows.LogoutUnknownToken:
		return "unknown_token"
	case flows.LogoutUndecodable:
		return "undecodable"
	default:
		return "revoked"
	}
}
