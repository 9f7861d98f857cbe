// Package secureauthx issues short-lived access tokens and single-use
// rotating refresh tokens, and revokes sessions through a persistent ledger.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// secureauthx is the public surface. It exposes [Engine], [Builder], [Config]
// and value types such as [TokenPair] and [IdentityView]. Flow orchestration,
// rate limiting and audit dispatch live under internal/ and are not exported.
// Identities and ledger records are stored behind [UserDirectory] and
// [Ledger]; implementations live in store/ and session/.
//
// # What this package must NOT do
//
//   - Hold ledger state in memory. Every refresh and logout reaches the Ledger.
//   - Tell callers why a refresh token was rejected. All rejections are
//     [ErrUnauthorized]; the reason goes to audit metadata only.
//   - Import any sub-package that re-imports secureauthx.
//
// # Performance contract
//
// ValidateAccess does one directory lookup and no ledger round-trip. Refresh
// does one ledger read and one atomic ledger write.
package secureauthx
