// Package redisstream provides an audit sink that appends session lifecycle
// events to a capped Redis stream.
//
// # Design
//
// Each [storageless.AuditEvent] becomes one XADD entry whose fields mirror the
// event's JSON tags. The stream is trimmed approximately to MaxLen on every
// write so a busy deployment cannot grow it without bound. Redis failures are
// counted and reported through an optional callback; they never reach the
// request path because the sink runs behind the audit dispatcher.
//
// # What this package must NOT do
//
//   - Record cookie values or session data.
//   - Block the caller beyond the per-write timeout.
package redisstream
