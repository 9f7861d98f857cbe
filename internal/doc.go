// Package internal contains helper utilities that are intentionally private to secureauthx,
// chiefly refresh-secret generation and token identifier derivation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: environment-driven server configuration
//   - flows: pure-function flow orchestrators for every Engine operation
//   - rate: in-process sliding-window rate limiter
//   - server: HTTP API bound to the Engine
//
// # What this package must NOT do
//
//   - Export types that appear in the public secureauthx API.
//   - Persist raw refresh secrets; only TokenID values leave this package.
package internal
