package redisstream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	storageless "github.com/MrEthical07/storageless"
)

const (
	// DefaultStream is the stream key used when Options.Stream is empty.
	DefaultStream = "slsession:audit"
	// DefaultMaxLen is the approximate stream length cap.
	DefaultMaxLen = 10000
	// DefaultWriteTimeout bounds a single XADD.
	DefaultWriteTimeout = 250 * time.Millisecond
)

// ErrRedisUnavailable wraps any Redis failure seen by the sink.
var ErrRedisUnavailable = errors.New("audit redis unavailable")

// Options configures a [Sink].
type Options struct {
	Stream       string
	MaxLen       int64
	WriteTimeout time.Duration
	// OnError receives write failures. It is called from the dispatcher
	// goroutine and must not block.
	OnError func(error)
}

// Sink appends audit events to a Redis stream.
type Sink struct {
	redis   redis.UniversalClient
	stream  string
	maxLen  int64
	timeout time.Duration
	onError func(error)
	failed  atomic.Uint64
}

var _ storageless.AuditSink = (*Sink)(nil)

// NewSink creates a [Sink] on the given client. Zero option values fall back
// to the package defaults.
func NewSink(client redis.UniversalClient, opts Options) *Sink {
	s := &Sink{
		redis:   client,
		stream:  opts.Stream,
		maxLen:  opts.MaxLen,
		timeout: opts.WriteTimeout,
		onError: opts.OnError,
	}
	if s.stream == "" {
		s.stream = DefaultStream
	}
	if s.maxLen <= 0 {
		s.maxLen = DefaultMaxLen
	}
	if s.timeout <= 0 {
		s.timeout = DefaultWriteTimeout
	}
	return s
}

// Stream returns the stream key events are written to.
func (s *Sink) Stream() string { return s.stream }

// Failed returns the number of events that could not be written.
func (s *Sink) Failed() uint64 { return s.failed.Load() }

// Emit implements [storageless.AuditSink].
func (s *Sink) Emit(ctx context.Context, event storageless.AuditEvent) {
	if s == nil || s.redis == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	err := s.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: encodeEvent(event),
	}).Err()
	if err != nil {
		s.failed.Add(1)
		if s.onError != nil {
			s.onError(fmt.Errorf("%w: %v", ErrRedisUnavailable, err))
		}
	}
}

// Read returns up to count of the oldest events still in the stream.
func (s *Sink) Read(ctx context.Context, count int64) ([]storageless.AuditEvent, error) {
	msgs, err := s.redis.XRangeN(ctx, s.stream, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]storageless.AuditEvent, 0, len(msgs))
	for _, msg := range msgs {
		ev, err := decodeEvent(msg.Values)
		if err != nil {
			return nil, fmt.Errorf("stream entry %s: %w", msg.ID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// Len reports the current stream length.
func (s *Sink) Len(ctx context.Context) (int64, error) {
	n, err := s.redis.XLen(ctx, s.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

// Ping checks Redis availability and returns the round-trip latency.
func (s *Sink) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func encodeEvent(ev storageless.AuditEvent) map[string]any {
	return map[string]any{
		"id":          ev.ID,
		"timestamp":   ev.Timestamp.UTC().Format(time.RFC3339Nano),
		"event_type":  ev.EventType,
		"reason":      ev.Reason,
		"cookie_name": ev.CookieName,
		"keys":        strconv.Itoa(ev.Keys),
		"success":     strconv.FormatBool(ev.Success),
	}
}

func decodeEvent(values map[string]any) (storageless.AuditEvent, error) {
	str := func(k string) string {
		v, _ := values[k].(string)
		return v
	}

	ts, err := time.Parse(time.RFC3339Nano, str("timestamp"))
	if err != nil {
		return storageless.AuditEvent{}, fmt.Errorf("timestamp: %w", err)
	}
	keys, err := strconv.Atoi(str("keys"))
	if err != nil {
		return storageless.AuditEvent{}, fmt.Errorf("keys: %w", err)
	}
	success, err := strconv.ParseBool(str("success"))
	if err != nil {
		return storageless.AuditEvent{}, fmt.Errorf("success: %w", err)
	}

	return storageless.AuditEvent{
		ID:         str("id"),
		Timestamp:  ts,
		EventType:  str("event_type"),
		Reason:     str("reason"),
		CookieName: str("cookie_name"),
		Keys:       keys,
		Success:    success,
	}, nil
}
