// Package session defines the refresh session ledger: the [Record] model, the
// [Ledger] gateway interface and its in-process and Redis implementations.
//
// # Rotation safety
//
// Single-use refresh rotation rests on [Ledger.RevokeIfActive] being an atomic
// compare-and-set. [MemoryLedger] serializes with a mutex; [Store] runs a Lua
// script so the read and the write happen inside one Redis command. SQL-backed
// ledgers live under store/ and use conditional UPDATE statements.
//
// # Architecture boundaries
//
// This package owns persistence of records only. It does NOT interpret JWT
// tokens, look up identities, or enforce authentication policy. Those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import secureauthx, jwt, or store packages (no upward imports).
//   - Persist raw refresh secrets. Only token ids reach a ledger.
//   - Delete records. Revocation is the terminal state, and revoked or
//     expired records are retained for replay detection.
package session
