// Package rate provides the in-process sliding-window limiter that gates the
// credential-issuing operations.
//
// # Window semantics
//
// Each (operation class, client identity) pair owns a bucket of request
// timestamps. A check prunes timestamps older than the window, rejects without
// recording when the bucket already holds maxRequests entries, and otherwise
// records the current time. Buckets are locked individually so unrelated
// clients never contend.
//
// # What this package must NOT do
//
//   - Share state across processes. Limits apply per Limiter instance.
//   - Be imported outside the secureauthx module.
package rate
