package redisstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	storageless "github.com/MrEthical07/storageless"
	"github.com/MrEthical07/storageless/clock"
)

var testNow = time.Date(2019, 4, 10, 20, 0, 0, 0, time.UTC)

func newSinkTest(t *testing.T, opts Options) (*Sink, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewSink(rdb, opts), mr
}

func TestSinkWritesAndReadsBack(t *testing.T) {
	sink, _ := newSinkTest(t, Options{})
	ctx := context.Background()

	want := storageless.AuditEvent{
		ID:         "0b6c1a52-5f44-4f0e-9d62-7b5b3f0c2a11",
		Timestamp:  testNow,
		EventType:  storageless.AuditSessionRejected,
		Reason:     "signature_invalid",
		CookieName: "slsession",
		Keys:       0,
		Success:    false,
	}
	sink.Emit(ctx, want)

	got, err := sink.Read(ctx, 10)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].ID != want.ID || !got[0].Timestamp.Equal(want.Timestamp) ||
		got[0].EventType != want.EventType || got[0].Reason != want.Reason ||
		got[0].CookieName != want.CookieName || got[0].Success {
		t.Fatalf("unexpected event %+v", got[0])
	}
	if sink.Stream() != DefaultStream {
		t.Fatalf("unexpected stream %q", sink.Stream())
	}
}

func TestSinkCapsStream(t *testing.T) {
	sink, _ := newSinkTest(t, Options{Stream: "audit:test", MaxLen: 5})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		sink.Emit(ctx, storageless.AuditEvent{
			EventType: storageless.AuditCookieIssued,
			Timestamp: testNow,
			Keys:      i,
			Success:   true,
		})
	}

	n, err := sink.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n > 5 {
		t.Fatalf("expected stream capped at 5, got %d", n)
	}
	got, err := sink.Read(ctx, 1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 1 || got[0].Keys == 0 {
		t.Fatalf("oldest entries must have been trimmed, got %+v", got)
	}
}

func TestSinkReportsRedisFailures(t *testing.T) {
	var reported error
	sink, mr := newSinkTest(t, Options{
		WriteTimeout: 50 * time.Millisecond,
		OnError:      func(err error) { reported = err },
	})
	mr.Close()

	sink.Emit(context.Background(), storageless.AuditEvent{EventType: storageless.AuditCookieIssued})

	if sink.Failed() != 1 {
		t.Fatalf("expected 1 failure, got %d", sink.Failed())
	}
	if !errors.Is(reported, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", reported)
	}
	if _, err := sink.Ping(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ping failure, got %v", err)
	}
}

func TestSinkIgnoresCanceledCallerContext(t *testing.T) {
	sink, _ := newSinkTest(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink.Emit(ctx, storageless.AuditEvent{EventType: storageless.AuditCookieCleared, Timestamp: testNow, Success: true})

	if n, err := sink.Len(context.Background()); err != nil || n != 1 {
		t.Fatalf("expected event despite canceled context, got %d %v", n, err)
	}
}

func TestSinkBehindPersistence(t *testing.T) {
	sink, _ := newSinkTest(t, Options{})

	cfg := storageless.DefaultConfig()
	cfg.SigningKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Audit.DropIfFull = false
	p, err := storageless.NewBuilder().
		WithConfig(cfg).
		WithClock(clock.Frozen(testNow)).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	s := p.InitializeSessionFromRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	s.Set("user", "alice")
	if err := p.PersistSession(s, http.Header{}); err != nil {
		t.Fatalf("PersistSession: %v", err)
	}
	p.Close()

	got, err := sink.Read(context.Background(), 10)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one event, got %+v", got)
	}
	if got[0].EventType != storageless.AuditCookieIssued || got[0].Keys != 1 || !got[0].Success {
		t.Fatalf("unexpected event %+v", got[0])
	}
	if got[0].ID == "" {
		t.Fatal("event ID must be recorded")
	}
}
