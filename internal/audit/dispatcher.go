package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior. OnDrop, when set, is called
// from the emitting goroutine for every event discarded because the buffer
// was full.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	OnDrop     func(Event)
}

// Dispatcher relays events to a Sink from one background goroutine, so sinks
// see events in emission order and never concurrently. A nil *Dispatcher is
// valid and discards everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	onDrop     func(Event)

	// mu guards queue against close while a send is in flight.
	mu     sync.RWMutex
	closed bool
	queue  chan Event

	// stop releases senders blocked on a full queue when Close starts.
	stop     chan struct{}
	stopOnce sync.Once
	finished chan struct{}
	dropped  atomic.Uint64
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		onDrop:     cfg.OnDrop,
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
		stop:       make(chan struct{}),
		finished:   make(chan struct{}),
	}
	go d.drain()
	return d
}

func (d *Dispatcher) drain() {
	defer close(d.finished)
	for ev := range d.queue {
		d.sink.Emit(context.Background(), ev)
	}
}

// Emit queues event. With DropIfFull a full buffer discards the event;
// otherwise Emit waits for space, ctx, or Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
			if d.onDrop != nil {
				d.onDrop(event)
			}
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops accepting events, delivers everything already queued and
// waits for the sink to finish. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		close(d.stop)

		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	<-d.finished
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
