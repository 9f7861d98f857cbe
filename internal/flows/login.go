package flows

import (
	"context"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureUnknownEmail
	LoginFailureLookup
	LoginFailureBadPassword
	LoginFailureInactive
	LoginFailureIssue
)

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	NormalizeEmail func(string) (string, error)
	Identities     IdentityLookup
	Verify         func(password, encodedHash string) bool
	// DummyHash is verified against when the email is unknown so both paths
	// cost one KDF evaluation.
	DummyHash string
	Pair      PairDeps
}

// LoginResult carries either the issued pair or failure metadata.
type LoginResult struct {
	Failure  LoginFailureKind
	Err      error
	Identity *Identity
	Pair     Pair
}

// RunLogin checks credentials and issues a pair for active identities.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	normalized, err := deps.NormalizeEmail(email)
	if err != nil {
		deps.Verify(password, deps.DummyHash)
		return LoginResult{Failure: LoginFailureUnknownEmail, Err: err}
	}

	user, err := deps.Identities.FindByEmail(ctx, normalized)
	if err != nil {
		if deps.Identities.IsNotFound(err) {
			deps.Verify(password, deps.DummyHash)
			return LoginResult{Failure: LoginFailureUnknownEmail, Err: err}
		}
		return LoginResult{Failure: LoginFailureLookup, Err: err}
	}

	if !deps.Verify(password, user.PasswordHash) {
		return LoginResult{Failure: LoginFailureBadPassword, Identity: user}
	}
	// Inactive is reported only after the password checks out.
	if !user.IsActive {
		return LoginResult{Failure: LoginFailureInactive, Identity: user}
	}

	pair, err := RunIssuePair(ctx, *user, deps.Pair)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Identity: user}
	}
	return LoginResult{Identity: user, Pair: pair}
}
