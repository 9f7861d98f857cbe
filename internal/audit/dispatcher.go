package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events when the buffer is full instead of blocking
	// the caller until space frees up or its context ends.
	DropIfFull bool
	Logger     hclog.Logger
}

type queued struct {
	ctx   context.Context
	event Event
}

// Dispatcher relays events to a sink from a single goroutine, so sinks see
// events in emission order and need no locking of their own. A nil
// *Dispatcher is valid and discards everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	log        hclog.Logger

	// mu guards closed and the send side of queue.
	mu     sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}

	dropped atomic.Uint64
	failed  atomic.Uint64
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		log:        cfg.Logger,
		queue:      make(chan queued, cfg.BufferSize),
		done:       make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for q := range d.queue {
		d.deliver(q)
	}
}

func (d *Dispatcher) deliver(q queued) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			d.log.Error("audit sink panicked", "event_type", q.event.EventType, "panic", r)
		}
	}()
	d.sink.Emit(q.ctx, q.event)
}

// Emit queues event. Request-scoped values of ctx stay visible to the sink,
// but its cancellation does not reach it.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	q := queued{ctx: context.WithoutCancel(ctx), event: event}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- q:
		default:
			d.drop(event)
		}
		return
	}

	select {
	case d.queue <- q:
	case <-ctx.Done():
		d.drop(event)
	}
}

func (d *Dispatcher) drop(event Event) {
	n := d.dropped.Add(1)
	// Warn on the first drop and then at every power of two.
	if n&(n-1) == 0 {
		d.log.Warn("audit buffer full, dropping events", "event_type", event.EventType, "dropped_total", n)
	}
}

// Close stops accepting events and returns once the queued ones reached the
// sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

// Dropped counts events discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Failed counts events whose delivery panicked inside the sink.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
