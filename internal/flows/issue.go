package flows

import (
	"context"
	"time"

	"github.com/secureauthx/secureauthx/jwt"
	"github.com/secureauthx/secureauthx/session"
)

// PairDeps captures what token-pair issuance needs.
type PairDeps struct {
	IssueAccess  func(subject string, admin bool) (string, *jwt.AccessClaims, error)
	IssueRefresh func(subject string) (string, *jwt.RefreshClaims, error)
	Ledger       session.Ledger
	Now          func() time.Time
}

// Pair is a freshly minted access/refresh pair plus the ledger record that
// makes the refresh token redeemable.
type Pair struct {
	AccessToken  string
	RefreshToken string
	Access       *jwt.AccessClaims
	Refresh      *jwt.RefreshClaims
	Record       session.Record
}

// MintPair signs both tokens for id without touching the ledger.
func MintPair(id Identity, deps PairDeps) (Pair, error) {
	subject := Subject(id.ID)

	access, accessClaims, err := deps.IssueAccess(subject, id.IsAdmin)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshClaims, err := deps.IssueRefresh(subject)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		Access:       accessClaims,
		Refresh:      refreshClaims,
		Record: session.Record{
			TokenID:    refreshClaims.TokenID,
			IdentityID: id.ID,
			ExpiresAt:  refreshClaims.ExpiresAt,
			CreatedAt:  deps.Now().UTC(),
		},
	}, nil
}

// RunIssuePair mints a pair and persists its record. The pair is returned only
// after the insert succeeded.
func RunIssuePair(ctx context.Context, id Identity, deps PairDeps) (Pair, error) {
	pair, err := MintPair(id, deps)
	if err != nil {
		return Pair{}, err
	}
	if err := deps.Ledger.Insert(ctx, pair.Record); err != nil {
		return Pair{}, err
	}
	return pair, nil
}
