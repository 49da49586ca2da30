// Package jwt signs session claims into compact JWTs and defensively parses and
// verifies tokens that come back from clients.
//
// # Pipeline
//
// Decoding is split into explicit steps so callers can stop at the first failure:
// [Codec.Parse] (shape), [Token.ValidAt] (claim-level checks, no cryptography),
// [Codec.Verify] (signature). Each step reports its outcome as a value; none of
// them panics on attacker-controlled input.
//
// # Architecture boundaries
//
// This package owns signing methods and key material. It does NOT read cookies,
// build HTTP responses, or decide what an invalid token means for a request.
//
// # What this package must NOT do
//
//   - Read the wall clock (callers pass the reference instant).
//   - Accept a token whose header alg differs from the configured method.
//   - Mutate a [Codec] after [NewCodec] returns.
package jwt
