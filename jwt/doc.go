// Package jwt encodes and decodes the two token kinds issued by secureauthx.
//
// Access tokens carry {sub, adm, typ=access, iss, iat, exp}. Refresh tokens carry
// {sub, typ=refresh, jti, iss, iat, exp}, where jti is a random secret whose
// SHA-256 digest (RefreshClaims.TokenID) keys the session ledger. Decoding is
// strict: every required claim must be present, the issuer must match and a claim
// set is never accepted as the other kind.
package jwt
