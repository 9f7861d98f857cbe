package flows

import (
	"context"
	"errors"
	"time"

	"github.com/secureauthx/secureauthx/jwt"
	"github.com/secureauthx/secureauthx/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
// Callers collapse every kind into one client-visible error; the kind only
// feeds audit and metrics.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureRecordMissing
	RefreshFailureRecordLookup
	RefreshFailureRecordRevoked
	RefreshFailureRecordExpired
	RefreshFailureSubjectMismatch
	RefreshFailureIdentityMissing
	RefreshFailureIdentityLookup
	RefreshFailureIdentityInactive
	RefreshFailureIssue
	RefreshFailureCASLost
	RefreshFailurePersist
)

var refreshFailureReasons = map[RefreshFailureKind]string{
	RefreshFailureDecode:           "decode_failed",
	RefreshFailureRecordMissing:    "record_missing",
	RefreshFailureRecordLookup:     "record_lookup_failed",
	RefreshFailureRecordRevoked:    "record_revoked",
	RefreshFailureRecordExpired:    "record_expired",
	RefreshFailureSubjectMismatch:  "subject_mismatch",
	RefreshFailureIdentityMissing:  "identity_missing",
	RefreshFailureIdentityLookup:   "identity_lookup_failed",
	RefreshFailureIdentityInactive: "identity_inactive",
	RefreshFailureIssue:            "issue_failed",
	RefreshFailureCASLost:          "cas_lost",
	RefreshFailurePersist:          "persist_failed",
}

// Reason is a stable snake_case label for audit metadata.
func (k RefreshFailureKind) Reason() string {
	return refreshFailureReasons[k]
}

// Replay reports whether the failure means an already-spent token was presented.
func (k RefreshFailureKind) Replay() bool {
	return k == RefreshFailureRecordRevoked || k == RefreshFailureCASLost
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh func(string) (*jwt.RefreshClaims, error)
	Identities   IdentityLookup
	Ledger       session.Ledger
	Pair         PairDeps
	Now          func() time.Time
}

// RefreshResult carries either the rotated pair or failure metadata.
type RefreshResult struct {
	Failure    RefreshFailureKind
	Err        error
	IdentityID int64
	OldTokenID string
	Pair       Pair
}

// RunRefresh redeems a refresh token exactly once: the presented record is
// revoked and its successor stored in the same ledger step when the ledger
// supports it, otherwise revoke-then-insert.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}
	subjectID, err := ParseSubject(claims.Sub)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err, OldTokenID: claims.TokenID}
	}
	res := RefreshResult{IdentityID: subjectID, OldTokenID: claims.TokenID}

	rec, err := deps.Ledger.FindByTokenID(ctx, claims.TokenID)
	if err != nil {
		if errors.Is(err, session.ErrRecordNotFound) {
			return res.fail(RefreshFailureRecordMissing, err)
		}
		return res.fail(RefreshFailureRecordLookup, err)
	}
	if rec.Revoked {
		return res.fail(RefreshFailureRecordRevoked, nil)
	}
	if !deps.Now().Before(rec.ExpiresAt) {
		return res.fail(RefreshFailureRecordExpired, nil)
	}
	if rec.IdentityID != subjectID {
		return res.fail(RefreshFailureSubjectMismatch, nil)
	}

	user, err := deps.Identities.FindByID(ctx, subjectID)
	if err != nil {
		if deps.Identities.IsNotFound(err) {
			return res.fail(RefreshFailureIdentityMissing, err)
		}
		return res.fail(RefreshFailureIdentityLookup, err)
	}
	if !user.IsActive {
		return res.fail(RefreshFailureIdentityInactive, nil)
	}

	next, err := MintPair(*user, deps.Pair)
	if err != nil {
		return res.fail(RefreshFailureIssue, err)
	}

	if rotator, ok := deps.Ledger.(session.Rotator); ok {
		won, err := rotator.Rotate(ctx, claims.TokenID, next.Record)
		if err != nil {
			return res.fail(RefreshFailurePersist, err)
		}
		if !won {
			return res.fail(RefreshFailureCASLost, nil)
		}
	} else {
		won, err := deps.Ledger.RevokeIfActive(ctx, claims.TokenID)
		if err != nil {
			return res.fail(RefreshFailurePersist, err)
		}
		if !won {
			return res.fail(RefreshFailureCASLost, nil)
		}
		if err := deps.Ledger.Insert(ctx, next.Record); err != nil {
			return res.fail(RefreshFailurePersist, err)
		}
	}

	res.Pair = next
	return res
}

func (r RefreshResult) fail(kind RefreshFailureKind, err error) RefreshResult {
	r.Failure = kind
	r.Err = err
	return r
}
