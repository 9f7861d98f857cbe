package flows

import (
	"context"
)

// RegisterFailureKind classifies register flow failures for root-level mapping.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureInvalidEmail
	RegisterFailurePasswordPolicy
	RegisterFailureDuplicate
	RegisterFailureLookup
	RegisterFailureHash
	RegisterFailureCreate
	RegisterFailureIssue
)

// RegisterDeps captures register flow dependencies.
type RegisterDeps struct {
	NormalizeEmail func(string) (string, error)
	CheckPassword  func(string) error
	Identities     IdentityLookup
	Create         func(ctx context.Context, email, passwordHash string) (*Identity, error)
	IsDuplicate    func(error) bool
	Hash           func(string) (string, error)
	Pair           PairDeps
}

// RegisterResult carries either the new identity and its pair or failure metadata.
type RegisterResult struct {
	Failure  RegisterFailureKind
	Err      error
	Email    string
	Identity *Identity
	Pair     Pair
}

// RunRegister validates input, creates the identity and issues its first pair.
func RunRegister(ctx context.Context, email, password string, deps RegisterDeps) RegisterResult {
	normalized, err := deps.NormalizeEmail(email)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureInvalidEmail, Err: err}
	}
	if err := deps.CheckPassword(password); err != nil {
		return RegisterResult{Failure: RegisterFailurePasswordPolicy, Err: err, Email: normalized}
	}

	existing, err := deps.Identities.FindByEmail(ctx, normalized)
	switch {
	case err == nil && existing != nil:
		return RegisterResult{Failure: RegisterFailureDuplicate, Email: normalized}
	case err != nil && !deps.Identities.IsNotFound(err):
		return RegisterResult{Failure: RegisterFailureLookup, Err: err, Email: normalized}
	}

	hash, err := deps.Hash(password)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureHash, Err: err, Email: normalized}
	}

	created, err := deps.Create(ctx, normalized, hash)
	if err != nil {
		// A concurrent registration can win between lookup and create.
		if deps.IsDuplicate(err) {
			return RegisterResult{Failure: RegisterFailureDuplicate, Err: err, Email: normalized}
		}
		return RegisterResult{Failure: RegisterFailureCreate, Err: err, Email: normalized}
	}

	pair, err := RunIssuePair(ctx, *created, deps.Pair)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureIssue, Err: err, Email: normalized, Identity: created}
	}

	return RegisterResult{Email: normalized, Identity: created, Pair: pair}
}
