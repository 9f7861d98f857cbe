// Package middleware adapts secureauthx.Engine access checks to net/http.
//
// # Guards
//
//   - [Guard]: requires a valid bearer access token.
//   - [RequireAdmin]: requires a valid bearer access token of an admin identity.
//
// Both read the Authorization header, delegate to the Engine and store the
// resolved identity in the request context ([IdentityFromContext]).
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Touch the session ledger.
//   - Make authorization decisions beyond what the Engine returns.
package middleware
