// Package storageless keeps HTTP session state entirely inside a signed cookie.
//
// The server holds no per-session storage. Each request's session is decoded
// from a JWT carried in the session cookie; each response re-encodes the
// session into a fresh cookie, or emits a clearing cookie when the session is
// empty. Tampered, expired, malformed or foreign tokens silently yield an empty
// session.
//
// [Persistence] instances are safe to call from multiple goroutines after
// construction through [New] or [Builder.Build]. A [Session] belongs to a
// single request.
//
// # Architecture boundaries
//
// storageless is the public surface. It exposes [Persistence], [Session],
// [Builder], [Config] and value types (MetricsSnapshot, AuditEvent, LintResult).
// Token signing lives in jwt/, cookie rendering in cookie/, and the net/http
// adapter in middleware/.
//
// # What this package must NOT do
//
//   - Store session data anywhere but the response cookie.
//   - Surface token validation failures to callers.
//   - Log token values or session contents.
//
// # Performance contract
//
// InitializeSessionFromRequest and PersistSession perform no I/O. Audit events
// are handed to a buffered dispatcher and never block the request unless
// AuditConfig.DropIfFull is false.
package storageless
