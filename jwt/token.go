package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is a parsed but not yet trusted session token.
type Token struct {
	alg           string
	claims        jwt.MapClaims
	signingString string
	signature     []byte
}

// ValidAt reports whether the token's claims are structurally acceptable at
// now. A present session-data claim must be a JSON object and a present exp
// claim must be numeric and not earlier than now, compared in whole seconds.
// A missing exp is accepted.
func (t *Token) ValidAt(now time.Time) bool {
	if t == nil {
		return false
	}

	if raw, ok := t.claims[ClaimSessionData]; ok {
		if _, isMap := raw.(map[string]any); !isMap {
			return false
		}
	}

	if _, ok := t.claims["exp"]; !ok {
		return true
	}
	exp, err := t.claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Unix() >= now.Unix()
}

// Claim returns the named claim or def when it is absent.
func (t *Token) Claim(name string, def any) any {
	if t == nil {
		return def
	}
	v, ok := t.claims[name]
	if !ok {
		return def
	}
	return v
}

// SessionData returns the session map carried by the token, or an empty map
// when the claim is absent or not an object. The returned map is owned by the
// caller.
func (t *Token) SessionData() map[string]any {
	if t == nil {
		return map[string]any{}
	}
	raw, ok := t.claims[ClaimSessionData].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}
