// Package audit buffers engine decisions and relays them to a sink.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, hclog, no-op).
//   - [Dispatcher]: buffered async relay that either drops or blocks when full.
//   - [Event]: one decision with identity, token id prefix, request id, IP and metadata.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. Which events exist, and what goes
// into them, is decided by the Engine.
//
// It must not import secureauthx or any sibling internal package.
package audit
