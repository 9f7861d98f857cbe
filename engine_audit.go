package secureauthx

import (
	"context"
	"errors"

	"github.com/secureauthx/secureauthx/jwt"
	"github.com/secureauthx/secureauthx/password"
)

const (
	auditEventRegisterSuccess    = "register_success"
	auditEventRegisterFailure    = "register_failure"
	auditEventRegisterDuplicate  = "register_duplicate"
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginInactive      = "login_inactive"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshInvalid     = "refresh_invalid"
	auditEventRefreshReplay      = "refresh_replay_detected"
	auditEventLogoutSession      = "logout_session"
	auditEventLogoutAll          = "logout_all"
	auditEventAdminDenied        = "admin_denied"
	auditEventPasswordRehashed   = "password_rehashed"
	auditEventRateLimitTriggered = "rate_limit_triggered"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountInactive    AuditErrorCode = "account_inactive"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrAdminRequired      AuditErrorCode = "admin_required"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrExpiredToken       AuditErrorCode = "expired_token"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrInvalidEmail       AuditErrorCode = "invalid_email"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// tokenIDPrefixLen bounds how much of a ledger key reaches audit sinks.
const tokenIDPrefixLen = 12

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identityID int64,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  e.now().UTC(),
		EventType:  eventType,
		IdentityID: identityID,
		TokenID:    shortTokenID(tokenID),
		RequestID:  requestIDFromContext(ctx),
		IP:         clientIPFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, op Operation, retryAfter string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, 0, "", ErrRateLimited, func() map[string]string {
		return map[string]string{
			"operation":   string(op),
			"retry_after": retryAfter,
		}
	})
}

func shortTokenID(tokenID string) string {
	if len(tokenID) <= tokenIDPrefixLen {
		return tokenID
	}
	return tokenID[:tokenIDPrefixLen]
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountInactive):
		return auditErrAccountInactive
	case errors.Is(err, ErrAdminRequired):
		return auditErrAdminRequired
	case errors.Is(err, jwt.ErrExpiredToken):
		return auditErrExpiredToken
	case errors.Is(err, jwt.ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, password.ErrEmptyPassword),
		errors.Is(err, password.ErrPasswordTooLong):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrInvalidEmail):
		return auditErrInvalidEmail
	case errors.Is(err, ErrAlreadyRegistered):
		return auditErrDuplicate
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
