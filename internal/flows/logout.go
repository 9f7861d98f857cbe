package flows

import (
	"context"
	"errors"

	"github.com/secureauthx/secureauthx/jwt"
	"github.com/secureauthx/secureauthx/session"
)

// LogoutOutcome describes what a logout call did. None of the outcomes is an
// error for the caller.
type LogoutOutcome int

const (
	LogoutRevoked LogoutOutcome = iota
	LogoutAlreadyRevoked
	LogoutUnknownToken
	LogoutUndecodable
	LogoutStorageError
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	ParseRefresh func(string) (*jwt.RefreshClaims, error)
	Ledger       session.Ledger
}

// LogoutResult reports the outcome for audit and metrics.
type LogoutResult struct {
	Outcome    LogoutOutcome
	Err        error
	IdentityID int64
	TokenID    string
}

// RunLogout revokes the record behind a refresh token if it is still active.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return LogoutResult{Outcome: LogoutUndecodable, Err: err}
	}
	res := LogoutResult{TokenID: claims.TokenID}
	if id, err := ParseSubject(claims.Sub); err == nil {
		res.IdentityID = id
	}

	rec, err := deps.Ledger.FindByTokenID(ctx, claims.TokenID)
	if err != nil {
		if errors.Is(err, session.ErrRecordNotFound) {
			res.Outcome = LogoutUnknownToken
			return res
		}
		res.Outcome = LogoutStorageError
		res.Err = err
		return res
	}
	if rec.Revoked {
		res.Outcome = LogoutAlreadyRevoked
		return res
	}

	won, err := deps.Ledger.RevokeIfActive(ctx, claims.TokenID)
	switch {
	case err != nil:
		res.Outcome = LogoutStorageError
		res.Err = err
	case !won:
		res.Outcome = LogoutAlreadyRevoked
	default:
		res.Outcome = LogoutRevoked
	}
	return res
}

// RevokeAllOutcome describes what a logout-all call did.
type RevokeAllOutcome int

const (
	RevokeAllDone RevokeAllOutcome = iota
	RevokeAllUnsupported
	RevokeAllStorageError
)

// RevokeAllDeps captures logout-all dependencies.
type RevokeAllDeps struct {
	Ledger session.Ledger
}

// RevokeAllResult carries the number of records newly revoked.
type RevokeAllResult struct {
	Outcome RevokeAllOutcome
	Revoked int
	Err     error
}

// RunRevokeAll revokes every active record of identityID. Ledgers that
// cannot enumerate an identity's records report RevokeAllUnsupported.
func RunRevokeAll(ctx context.Context, identityID int64, deps RevokeAllDeps) RevokeAllResult {
	revoker, ok := deps.Ledger.(session.IdentityRevoker)
	if !ok {
		return RevokeAllResult{Outcome: RevokeAllUnsupported}
	}
	n, err := revoker.RevokeAllForIdentity(ctx, identityID)
	if err != nil {
		return RevokeAllResult{Outcome: RevokeAllStorageError, Err: err}
	}
	return RevokeAllResult{Outcome: RevokeAllDone, Revoked: n}
}
