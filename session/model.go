package session

import "time"

// Record is a refresh session entry. TokenID is the digest of the refresh
// token's secret. The only mutation a record ever sees is Revoked going from
// false to true.
type Record struct {
	TokenID    string
	IdentityID int64
	Revoked    bool
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Active reports whether the record can still be redeemed at now.
func (r *Record) Active(now time.Time) bool {
	return r != nil && !r.Revoked && now.Before(r.ExpiresAt)
}
