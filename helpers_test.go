package storageless

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/storageless/clock"
	"github.com/MrEthical07/storageless/internal/testkeys"
	"github.com/MrEthical07/storageless/jwt"
)

var testNow = time.Date(2019, 4, 10, 20, 0, 0, 0, time.UTC)

const testSecret = "0123456789abcdef0123456789abcdef"

func rsConfig() Config {
	cfg := DefaultConfig()
	cfg.SigningMethod = jwt.MethodRS256
	cfg.SigningKey = []byte(testkeys.PrivateKeyA)
	cfg.VerificationKey = []byte(testkeys.PublicKeyA)
	cfg.TTL = 1200 * time.Second
	return cfg
}

func hsConfig() Config {
	cfg := DefaultConfig()
	cfg.SigningKey = []byte(testSecret)
	return cfg
}

func buildAt(t testing.TB, cfg Config, c clock.Clock) *Persistence {
	t.Helper()
	p, err := NewBuilder().WithConfig(cfg).WithClock(c).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

// requestWith builds a GET request carrying the session cookie from a
// Set-Cookie line.
func requestWith(t testing.TB, setCookie string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	name, value := cookiePair(setCookie)
	r.AddCookie(&http.Cookie{Name: name, Value: value})
	return r
}

func cookiePair(setCookie string) (string, string) {
	pair := strings.SplitN(setCookie, ";", 2)[0]
	name, value, _ := strings.Cut(pair, "=")
	return name, value
}

func persistLine(t testing.TB, p *Persistence, s *Session) string {
	t.Helper()
	h := http.Header{}
	if err := p.PersistSession(s, h); err != nil {
		t.Fatalf("PersistSession failed: %v", err)
	}
	lines := h.Values("Set-Cookie")
	if len(lines) != 1 {
		t.Fatalf("expected one Set-Cookie line, got %v", lines)
	}
	return lines[0]
}
