package jwt

import (
	"testing"
	"time"
)

func FuzzParseVerify(f *testing.F) {
	c, err := NewCodec(Config{SigningMethod: MethodHS256, SigningKey: []byte("fuzz-secret-0123456789abcdefghijk")})
	if err != nil {
		f.Fatalf("NewCodec: %v", err)
	}
	valid, err := c.Sign(Claims{IssuedAt: baseTime, ExpiresAt: baseTime.Add(time.Minute), SessionData: map[string]any{"a": 1}})
	if err != nil {
		f.Fatalf("Sign: %v", err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("...")
	f.Add("eyJhbGciOiJub25lIn0.e30.")
	f.Add("eyJhbGciOiJIUzI1NiJ9.eyJzZXNzaW9uLWRhdGEiOjF9.AAAA")

	f.Fuzz(func(t *testing.T, raw string) {
		tok, err := c.Parse(raw)
		if err != nil {
			return
		}
		_ = tok.ValidAt(baseTime)
		_ = tok.SessionData()
		if c.Verify(tok) && raw != valid {
			// Any other verified token would be a forgery.
			t.Fatalf("unexpected verified token %q", raw)
		}
	})
}
