package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// queued is an event together with the emitting request's context values.
// Cancellation is stripped so a finished request does not abort delivery.
type queued struct {
	ctx   context.Context
	event Event
}

// Dispatcher hands events to a Sink on one background goroutine, in the
// order they were recorded.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	onDrop     func(Event)

	queue   chan queued
	stop    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
	once    sync.Once

	mu     sync.RWMutex
	closed bool
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithDropHook runs fn on the recording goroutine for every event dropped on
// a full buffer.
func WithDropHook(fn func(Event)) Option {
	return func(d *Dispatcher) { d.onDrop = fn }
}

// NewDispatcher returns nil when auditing is disabled. A nil Dispatcher
// accepts every call and records nothing.
func NewDispatcher(cfg Config, sink Sink, opts ...Option) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan queued, cfg.BufferSize),
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(1)
	go d.forward()
	return d
}

func (d *Dispatcher) forward() {
	defer d.wg.Done()
	for {
		select {
		case q := <-d.queue:
			d.sink.Emit(q.ctx, q.event)
		case <-d.stop:
			for {
				select {
				case q := <-d.queue:
					d.sink.Emit(q.ctx, q.event)
				default:
					return
				}
			}
		}
	}
}

// Record queues event and reports whether it was accepted. A zero Timestamp
// is set to the current UTC time. With DropIfFull a full buffer drops the
// event; otherwise Record waits for room or for ctx to end.
func (d *Dispatcher) Record(ctx context.Context, event Event) bool {
	if d == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	q := queued{ctx: context.WithoutCancel(ctx), event: event}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	if d.dropIfFull {
		select {
		case d.queue <- q:
			return true
		default:
			d.dropped.Add(1)
			if d.onDrop != nil {
				d.onDrop(event)
			}
			return false
		}
	}

	select {
	case d.queue <- q:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close refuses further events, delivers the queued ones, and waits for the
// sink goroutine to exit.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.stop)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
