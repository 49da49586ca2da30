package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageless "github.com/MrEthical07/storageless"
	"github.com/MrEthical07/storageless/clock"
	"github.com/MrEthical07/storageless/internal/testkeys"
	"github.com/MrEthical07/storageless/jwt"
)

var now = time.Date(2019, 4, 10, 20, 0, 0, 0, time.UTC)

func newPersistence(t *testing.T) *storageless.Persistence {
	t.Helper()
	cfg := storageless.DefaultConfig()
	cfg.SigningMethod = jwt.MethodRS256
	cfg.SigningKey = []byte(testkeys.PrivateKeyA)
	cfg.VerificationKey = []byte(testkeys.PublicKeyA)
	cfg.TTL = 1200 * time.Second

	p, err := storageless.NewBuilder().WithConfig(cfg).WithClock(clock.Frozen(now)).Build()
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) string {
	t.Helper()
	var found []string
	for _, line := range rec.Result().Header.Values("Set-Cookie") {
		if strings.HasPrefix(line, name+"=") {
			found = append(found, line)
		}
	}
	require.Len(t, found, 1, "expected exactly one session cookie")
	return found[0]
}

func TestSessionWritesCookieBeforeBody(t *testing.T) {
	p := newPersistence(t)

	h := Session(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := MustFromContext(r.Context())
		s.Set("key", "value")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
		// Too late to change the cookie; this must not produce a second header.
		s.Set("late", true)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	line := sessionCookie(t, rec, "slsession")
	assert.True(t, strings.HasSuffix(line, "; Path=/; Expires=Wed, 10 Apr 2019 20:20:00 GMT; Secure; HttpOnly; SameSite=Lax"), line)

	value := strings.TrimPrefix(strings.SplitN(line, ";", 2)[0], "slsession=")
	data, ok := p.DecodeToken(value)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"key": "value"}, data)
}

func TestSessionPersistsAfterHandlerWithoutWrite(t *testing.T) {
	p := newPersistence(t)

	h := Session(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		MustFromContext(r.Context()).Set("n", 1)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	line := sessionCookie(t, rec, "slsession")
	assert.NotContains(t, line, "slsession=;")
}

func TestSessionWithoutCookieEmitsClearingCookie(t *testing.T) {
	p := newPersistence(t)

	h := Session(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := FromContext(r.Context())
		require.NoError(t, err)
		assert.True(t, s.IsEmpty())
		_, _ = w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t,
		"slsession=; Path=/; Expires=Mon, 11 Mar 2019 20:00:00 GMT; Secure; HttpOnly; SameSite=Lax",
		sessionCookie(t, rec, "slsession"),
	)
}

func TestSessionRoundTripAcrossRequests(t *testing.T) {
	p := newPersistence(t)

	var seen any
	h := Session(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := MustFromContext(r.Context())
		seen = s.Get("user", nil)
		s.Set("user", "alice")
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Nil(t, seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range first.Result().Cookies() {
		req.AddCookie(c)
	}
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)

	assert.Equal(t, "alice", seen)
}

func TestSessionIgnoresTamperedCookie(t *testing.T) {
	p := newPersistence(t)

	var empty bool
	h := Session(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		empty = MustFromContext(r.Context()).IsEmpty()
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "slsession", Value: "not.a.token"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, empty)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, sessionCookie(t, rec, "slsession"), "slsession=;")
}

func TestSessionKeepsOtherCookies(t *testing.T) {
	p := newPersistence(t)

	h := Session(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "theme", Value: "dark"})
		MustFromContext(r.Context()).Set("a", "b")
		_, _ = w.Write(nil)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	lines := rec.Result().Header.Values("Set-Cookie")
	require.Len(t, lines, 2)
	assert.Equal(t, "theme=dark", lines[0])
}

func TestSessionEncodeFailureContinuesResponse(t *testing.T) {
	p := newPersistence(t)

	h := Session(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		MustFromContext(r.Context()).Set("bad", func() {})
		_, _ = w.Write([]byte("body"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "body", rec.Body.String())
	assert.Empty(t, rec.Result().Header.Values("Set-Cookie"))
}

func TestFlushPersistsFirst(t *testing.T) {
	p := newPersistence(t)

	h := Session(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		MustFromContext(r.Context()).Set("stream", true)
		assert.NoError(t, http.NewResponseController(w).Flush())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, rec.Flushed)
	sessionCookie(t, rec, "slsession")
}

// plainWriter hides every optional interface of the recorder.
type plainWriter struct{ http.ResponseWriter }

func TestFlushUnsupportedIsReported(t *testing.T) {
	p := newPersistence(t)

	h := Session(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, isFlusher := w.(http.Flusher)
		assert.False(t, isFlusher, "wrapper must not claim to flush")
		assert.ErrorIs(t, http.NewResponseController(w).Flush(), http.ErrNotSupported)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(plainWriter{rec}, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, rec.Flushed)
	sessionCookie(t, rec, "slsession")
}

func TestFromContextWithoutMiddleware(t *testing.T) {
	_, err := FromContext(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, storageless.ErrMissingMiddleware))
	assert.Contains(t, err.Error(), "please add the session middleware")

	assert.Panics(t, func() { MustFromContext(context.Background()) })
}

func TestNilPersistencePassesThrough(t *testing.T) {
	called := false
	h := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
	assert.Empty(t, rec.Result().Header.Values("Set-Cookie"))
}
