// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunRegister, RunLogin, RunRefresh, RunLogout, RunValidate)
// accepts a typed dependency struct and returns a result carrying a failure kind
// instead of a client-facing error. The Engine maps kinds to errors, audit
// events and metrics, which keeps the Engine type thin and lets flows be tested
// with plain function stubs.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user directory, token codec and session
// ledger. They do NOT own any of these resources; ownership stays with the Engine.
// Rate limiting happens in the Engine before a flow runs.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import secureauthx (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
