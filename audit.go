package storageless

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Audit event types.
const (
	AuditSessionLoaded       = "session_loaded"
	AuditSessionRejected     = "session_rejected"
	AuditCookieIssued        = "cookie_issued"
	AuditCookieCleared       = "cookie_cleared"
	AuditSessionEncodeFailed = "session_encode_failed"
)

// AuditEvent describes one session lifecycle step. It never carries token
// values or session contents; Keys is only the number of session keys.
type AuditEvent struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	EventType  string    `json:"event_type"`
	Reason     string    `json:"reason,omitempty"`
	CookieName string    `json:"cookie_name"`
	Keys       int       `json:"keys"`
	Success    bool      `json:"success"`
}

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink exposes events on a buffered channel. When the reader falls
// behind, events are dropped rather than stalling the dispatcher.
type ChannelSink struct {
	events  chan AuditEvent
	dropped atomic.Uint64
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan AuditEvent, max(buffer, 1))}
}

func (s *ChannelSink) Emit(_ context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	default:
		s.dropped.Add(1)
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent { return s.events }

// Dropped reports events lost because the channel was full.
func (s *ChannelSink) Dropped() uint64 { return s.dropped.Load() }

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(event)
}

// SlogSink records events as structured log lines at Info, or Warn when
// Success is false.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.logger == nil {
		return
	}
	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(ctx, level, "session audit",
		slog.String("event_id", event.ID),
		slog.String("event_type", event.EventType),
		slog.String("reason", event.Reason),
		slog.String("cookie", event.CookieName),
		slog.Int("keys", event.Keys),
		slog.Time("at", event.Timestamp),
	)
}

// MultiSink fans each event out to every sink in order.
type MultiSink []AuditSink

func (m MultiSink) Emit(ctx context.Context, event AuditEvent) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}
