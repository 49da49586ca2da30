package storageless

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// queuedEvent keeps the emitter's context values without its cancellation, so
// a sink can still read request-scoped values after the request finished.
type queuedEvent struct {
	ctx   context.Context
	event AuditEvent
}

// auditDispatcher hands events to a single sink goroutine through a bounded
// queue. A nil dispatcher is valid and discards everything.
type auditDispatcher struct {
	sink       AuditSink
	logger     *slog.Logger
	dropIfFull bool

	queue   chan queuedEvent
	stop    chan struct{}
	stopped sync.WaitGroup
	once    sync.Once
	closing atomic.Bool

	dropped   atomic.Uint64
	delivered atomic.Uint64
	panicked  atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger *slog.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &auditDispatcher{
		sink:       sink,
		logger:     logger,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan queuedEvent, max(cfg.BufferSize, 1)),
		stop:       make(chan struct{}),
	}
	d.stopped.Add(1)
	go d.loop()
	return d
}

func (d *auditDispatcher) loop() {
	defer d.stopped.Done()
	for {
		select {
		case q := <-d.queue:
			d.deliver(q)
		case <-d.stop:
			// Flush whatever was accepted before Close.
			for {
				select {
				case q := <-d.queue:
					d.deliver(q)
				default:
					return
				}
			}
		}
	}
}

func (d *auditDispatcher) deliver(q queuedEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.panicked.Add(1)
			d.logger.Error("audit sink panicked",
				slog.String("event_type", q.event.EventType),
				slog.Any("panic", r),
			)
		}
	}()
	d.sink.Emit(q.ctx, q.event)
	d.delivered.Add(1)
}

// Emit enqueues event. With dropIfFull a full queue drops and counts the
// event; otherwise Emit waits for room, ctx cancellation or Close.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	q := queuedEvent{ctx: context.WithoutCancel(ctx), event: event}

	if d.dropIfFull {
		select {
		case d.queue <- q:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- q:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close stops intake, flushes queued events and waits for the sink goroutine.
// It is safe to call more than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.stopped.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *auditDispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
