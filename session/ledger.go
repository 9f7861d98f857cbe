package session

import (
	"context"
	"errors"
)

var (
	// ErrRecordNotFound is returned by FindByTokenID for unknown token ids.
	ErrRecordNotFound = errors.New("session record not found")
	// ErrDuplicateTokenID is returned by Insert when the token id already exists.
	ErrDuplicateTokenID = errors.New("session record already exists")
	// ErrRedisUnavailable wraps transport failures of the Redis ledger.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Ledger is the durable store of refresh session records.
//
// RevokeIfActive is a compare-and-set: it flips Revoked only when the record
// exists and is not revoked yet, and reports whether this call made the change.
// Among concurrent callers on the same token id at most one observes true.
type Ledger interface {
	Insert(ctx context.Context, rec Record) error
	FindByTokenID(ctx context.Context, tokenID string) (*Record, error)
	RevokeIfActive(ctx context.Context, tokenID string) (bool, error)
}

// Rotator is implemented by ledgers that can revoke a record and insert its
// successor as one atomic unit. When the revoke loses, nothing is inserted.
type Rotator interface {
	Rotate(ctx context.Context, oldTokenID string, next Record) (bool, error)
}

// IdentityRevoker is implemented by ledgers that can revoke every active record
// of one identity. Records stay in place; deleting an identity never cascades.
type IdentityRevoker interface {
	RevokeAllForIdentity(ctx context.Context, identityID int64) (int, error)
}
