// Package cookie builds the Set-Cookie lines that carry session tokens.
//
// A [Template] fixes the static attributes (name, path, domain, flags). [Live]
// and [Expired] derive concrete [Cookie] values from it; the template itself
// never changes.
//
// # Architecture boundaries
//
// This package knows nothing about tokens or sessions. It renders attributes in
// a fixed order and manipulates header maps; deciding which cookie to emit is
// the caller's job.
//
// # What this package must NOT do
//
//   - Read the wall clock.
//   - Drop unrelated Set-Cookie lines when attaching a cookie.
package cookie
