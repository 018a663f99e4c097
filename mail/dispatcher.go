package mail

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 10 * time.Second
)

// Config sizes the dispatcher queue and bounds each send.
type Config struct {
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher queues messages and sends them on a single background
// goroutine. Enqueue never blocks: when the queue is full the message is
// dropped and counted.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration
	onDrop   func(Message)
	onFail   func(Message, error)

	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closeOnce sync.Once

	// mu orders Enqueue's send against Close; once closed is set under the
	// write lock no further message can reach ch.
	mu     sync.RWMutex
	closed bool
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDropHook runs fn for every message dropped on a full queue.
func WithDropHook(fn func(Message)) Option {
	return func(d *Dispatcher) { d.onDrop = fn }
}

// WithFailureHook runs fn, on the dispatcher goroutine, for every failed send.
func WithFailureHook(fn func(Message, error)) Option {
	return func(d *Dispatcher) { d.onFail = fn }
}

func NewDispatcher(notifier Notifier, cfg Config, opts ...Option) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if notifier == nil {
		notifier = NewLogNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	}

	d := &Dispatcher{
		notifier: notifier,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout:  cfg.SendTimeout,
		ch:       make(chan Message, cfg.QueueSize),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case msg := <-d.ch:
			d.send(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.send(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) send(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.notifier.Send(ctx, msg); err != nil {
		d.failed.Add(1)
		d.logger.Warn("mail delivery failed",
			"kind", string(msg.Kind),
			"to", msg.To,
			"error", err,
		)
		if d.onFail != nil {
			d.onFail(msg, err)
		}
	}
}

// Enqueue hands msg to the background sender. It reports false when the
// message was dropped.
func (d *Dispatcher) Enqueue(msg Message) bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.ch <- msg:
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn("mail queue full, message dropped", "kind", string(msg.Kind), "to", msg.To)
		if d.onDrop != nil {
			d.onDrop(msg)
		}
		return false
	}
}

// Close stops accepting messages, sends what is queued, and waits for the
// sender goroutine to exit.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
