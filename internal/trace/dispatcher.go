package trace

import (
	"context"
	"log/slog"
	"time"
)

// publishTimeout bounds one delivery attempt to the sink.
const publishTimeout = 10 * time.Second

// Dispatcher decouples the agent loop from the sink: Emit enqueues
// without blocking (events are dropped, with a log line, when the queue
// is full), and a single background goroutine drains the queue.
type Dispatcher struct {
	publisher Publisher
	queue     chan Event
	done      chan struct{}
}

// NewDispatcher creates a dispatcher over a publisher. A nil publisher
// behaves like NopPublisher.
func NewDispatcher(publisher Publisher, queueSize int) *Dispatcher {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Dispatcher{
		publisher: publisher,
		queue:     make(chan Event, queueSize),
		done:      make(chan struct{}),
	}
}

// Active reports whether emitted events can reach a sink.
func (d *Dispatcher) Active() bool {
	return d != nil && d.publisher.Active()
}

// Emit enqueues an event without blocking.
func (d *Dispatcher) Emit(ev Event) {
	if !d.Active() {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case d.queue <- ev:
	default:
		slog.Warn("Trace queue full, dropping event", "trace_id", ev.TraceID, "kind", ev.Kind)
	}
}

// Run drains the queue until ctx is cancelled, then flushes whatever is
// still queued before exiting. Run as a goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case ev := <-d.queue:
					d.publish(ev)
				default:
					return
				}
			}
		case ev := <-d.queue:
			d.publish(ev)
		}
	}
}

func (d *Dispatcher) publish(ev Event) {
	pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := d.publisher.Publish(pubCtx, ev); err != nil {
		slog.Warn("Trace publish failed", "trace_id", ev.TraceID, "kind", ev.Kind, "error", err)
	}
}

// Wait blocks until the dispatch loop has exited.
func (d *Dispatcher) Wait() {
	<-d.done
}
