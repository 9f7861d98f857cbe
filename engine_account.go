package secureauthx

import (
	"context"
	"fmt"
	"strconv"

	"github.com/secureauthx/secureauthx/internal/flows"
)

// Register creates an active, non-admin identity and returns its first token
// pair. Emails are compared case-insensitively.
func (e *Engine) Register(ctx context.Context, email, password string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if err := e.allow(ctx, OpRegister, MetricRegisterRateLimited); err != nil {
		return nil, err
	}

	res := e.flows.Register(ctx, email, password)
	switch res.Failure {
	case flows.RegisterFailureNone:
	case flows.RegisterFailureInvalidEmail, flows.RegisterFailurePasswordPolicy:
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, 0, "", res.Err, nil)
		return nil, res.Err
	case flows.RegisterFailureDuplicate:
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, 0, "", ErrAlreadyRegistered, nil)
		return nil, ErrAlreadyRegistered
	default:
		e.metricInc(MetricRegisterFailure)
		err := fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		if res.Failure == flows.RegisterFailureHash {
			err = fmt.Errorf("register: hash password: %w", res.Err)
		}
		e.logger.Error("register failed", "stage", registerStage(res.Failure), "error", res.Err)
		e.emitAudit(ctx, auditEventRegisterFailure, false, identityIDOf(res.Identity), "", err, func() map[string]string {
			return map[string]string{"stage": registerStage(res.Failure)}
		})
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, res.Identity.ID, res.Pair.Record.TokenID, nil, nil)
	return tokenPair(res.Pair), nil
}

// Login exchanges credentials for a token pair. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials. ErrAccountInactive is returned
// only once the password has been verified.
func (e *Engine) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if err := e.allow(ctx, OpLogin, MetricLoginRateLimited); err != nil {
		return nil, err
	}

	res := e.flows.Login(ctx, email, password)
	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureUnknownEmail, flows.LoginFailureBadPassword:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, identityIDOf(res.Identity), "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	case flows.LoginFailureInactive:
		e.metricInc(MetricLoginInactive)
		e.emitAudit(ctx, auditEventLoginInactive, false, res.Identity.ID, "", ErrAccountInactive, nil)
		return nil, ErrAccountInactive
	default:
		e.metricInc(MetricLoginFailure)
		err := fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		e.logger.Error("login failed", "identity_id", identityIDOf(res.Identity), "error", res.Err)
		e.emitAudit(ctx, auditEventLoginFailure, false, identityIDOf(res.Identity), "", err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.Identity.ID, res.Pair.Record.TokenID, nil, nil)

	if e.config.Password.UpgradeOnLogin {
		e.upgradePasswordHash(ctx, res.Identity, password)
	}
	return tokenPair(res.Pair), nil
}

// upgradePasswordHash replaces bcrypt or under-cost hashes. Failures are
// logged and never fail the login.
func (e *Engine) upgradePasswordHash(ctx context.Context, user *flows.Identity, password string) {
	rehasher, ok := e.directory.(PasswordRehasher)
	if !ok {
		return
	}
	stale, err := e.passwordHash.NeedsUpgrade(user.PasswordHash)
	if err != nil || !stale {
		return
	}

	hash, err := e.passwordHash.Hash(password)
	if err != nil {
		e.logger.Warn("password rehash failed", "identity_id", user.ID, "error", err)
		return
	}
	if err := rehasher.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		e.logger.Warn("password rehash not persisted", "identity_id", user.ID, "error", err)
		return
	}

	e.metricInc(MetricPasswordRehashed)
	e.emitAudit(ctx, auditEventPasswordRehashed, true, user.ID, "", nil, nil)
}

func registerStage(kind flows.RegisterFailureKind) string {
	switch kind {
	case flows.RegisterFailureLookup:
		return "lookup"
	case flows.RegisterFailureHash:
		return "hash"
	case flows.RegisterFailureCreate:
		return "create"
	case flows.RegisterFailureIssue:
		return "issue"
	default:
		return strconv.Itoa(int(kind))
	}
}

func identityIDOf(id *flows.Identity) int64 {
	if id == nil {
		return 0
	}
	return id.ID
}

