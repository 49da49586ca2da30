// Package middleware adapts storageless.Persistence to net/http.
//
// [Session] decodes the request's session cookie once, stores the session in
// the request context, and writes the refreshed Set-Cookie header right before
// the response status goes out. Handlers read the session with [FromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Persistence calls. Token handling
// and cookie rendering stay in the storageless, jwt and cookie packages.
//
// # What this package must NOT do
//
//   - Reject requests because of an invalid session token.
//   - Write the session cookie more than once per response.
package middleware
