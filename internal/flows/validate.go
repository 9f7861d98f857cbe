package flows

import (
	"context"

	"github.com/secureauthx/secureauthx/jwt"
)

// ValidateFailureKind classifies access validation failures.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureEmpty
	ValidateFailureDecode
	ValidateFailureIdentityMissing
	ValidateFailureIdentityLookup
	ValidateFailureIdentityInactive
)

// ValidateDeps captures access validation dependencies.
type ValidateDeps struct {
	ParseAccess func(string) (*jwt.AccessClaims, error)
	Identities  IdentityLookup
}

// ValidateResult carries the resolved identity or failure metadata.
type ValidateResult struct {
	Failure  ValidateFailureKind
	Err      error
	Claims   *jwt.AccessClaims
	Identity *Identity
}

// RunValidate checks an access token and resolves its subject. The ledger is
// not consulted; access tokens are stateless until they expire.
func RunValidate(ctx context.Context, tokenStr string, deps ValidateDeps) ValidateResult {
	if tokenStr == "" {
		return ValidateResult{Failure: ValidateFailureEmpty}
	}
	claims, err := deps.ParseAccess(tokenStr)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureDecode, Err: err}
	}
	id, err := ParseSubject(claims.Sub)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureDecode, Err: err, Claims: claims}
	}

	user, err := deps.Identities.FindByID(ctx, id)
	if err != nil {
		if deps.Identities.IsNotFound(err) {
			return ValidateResult{Failure: ValidateFailureIdentityMissing, Err: err, Claims: claims}
		}
		return ValidateResult{Failure: ValidateFailureIdentityLookup, Err: err, Claims: claims}
	}
	if !user.IsActive {
		return ValidateResult{Failure: ValidateFailureIdentityInactive, Claims: claims, Identity: user}
	}
	return ValidateResult{Claims: claims, Identity: user}
}
