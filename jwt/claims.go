package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind discriminates the two token variants.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is implemented by *AccessClaims and *RefreshClaims.
type Claims interface {
	Kind() Kind
	Subject() string
	Lifetime() (issuedAt, expiresAt time.Time)
}

// AccessClaims is the decoded form of an access token.
type AccessClaims struct {
	Sub       string
	Admin     bool
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c *AccessClaims) Kind() Kind      { return KindAccess }
func (c *AccessClaims) Subject() string { return c.Sub }

func (c *AccessClaims) Lifetime() (time.Time, time.Time) {
	return c.IssuedAt, c.ExpiresAt
}

// RefreshClaims is the decoded form of a refresh token. Secret is the raw jti
// carried on the wire; TokenID is its digest and is the value used as the
// ledger key.
type RefreshClaims struct {
	Sub       string
	Issuer    string
	Secret    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c *RefreshClaims) Kind() Kind      { return KindRefresh }
func (c *RefreshClaims) Subject() string { return c.Sub }

func (c *RefreshClaims) Lifetime() (time.Time, time.Time) {
	return c.IssuedAt, c.ExpiresAt
}

// wireClaims is the JSON shape shared by both kinds. Kind-specific keys are
// optional here and enforced after parsing.
type wireClaims struct {
	Type  string `json:"typ"`
	Admin *bool  `json:"adm,omitempty"`
	jwt.RegisteredClaims
}
