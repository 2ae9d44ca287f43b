package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Sink receives audit events from the Notifier's worker.
type Sink interface {
	Name() string
	Write(ctx context.Context, event Event) error
}

// DefaultQueueSize is the queue capacity used when none is configured.
const DefaultQueueSize = 1024

// sinkTimeout bounds a single sink write.
const sinkTimeout = 5 * time.Second

// Notifier queues events and delivers them to every sink from one worker.
// Notify never blocks: when the queue is full the event is dropped and counted.
type Notifier struct {
	sinks  []Sink
	events chan Event
	logger *slog.Logger
	wg     sync.WaitGroup

	shutdownMu sync.RWMutex
	shutdown   bool

	delivered atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// NewNotifier creates a notifier with the given queue capacity and sinks.
func NewNotifier(logger *slog.Logger, queueSize int, sinks ...Sink) *Notifier {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Notifier{
		sinks:  sinks,
		events: make(chan Event, queueSize),
		logger: logger,
	}
}

// Start runs the delivery loop until ctx is done or Shutdown closes the queue.
// Call it once, in its own goroutine.
func (n *Notifier) Start(ctx context.Context) {
	n.wg.Add(1)
	defer n.wg.Done()

	n.logger.Info("audit notifier starting", slog.Int("sinks", len(n.sinks)))

	for {
		select {
		case event, ok := <-n.events:
			if !ok {
				return
			}
			n.deliver(event)
		case <-ctx.Done():
			n.logger.Info("audit notifier stopping")
			return
		}
	}
}

// Notify queues an event for delivery. It is safe for concurrent use and
// returns immediately.
func (n *Notifier) Notify(event Event) {
	// Read lock held through the send so Shutdown cannot close the channel under us.
	n.shutdownMu.RLock()
	defer n.shutdownMu.RUnlock()

	if n.shutdown {
		n.dropped.Add(1)
		return
	}

	select {
	case n.events <- event:
	default:
		n.dropped.Add(1)
		n.logger.Warn("audit queue full, dropping event",
			slog.String("event_id", event.ID),
			slog.String("kind", string(event.Kind)))
	}
}

// Shutdown stops accepting events and drains what is queued, giving up when
// ctx expires.
func (n *Notifier) Shutdown(ctx context.Context) error {
	n.shutdownMu.Lock()
	if n.shutdown {
		n.shutdownMu.Unlock()
		return nil
	}
	n.shutdown = true
	close(n.events)
	n.shutdownMu.Unlock()

	// Start may already have exited on its own context; drain here as well.
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		for event := range n.events {
			n.deliver(event)
		}
		close(done)
	}()

	select {
	case <-done:
		n.logger.Info("audit notifier drained",
			slog.Int64("delivered", n.delivered.Load()),
			slog.Int64("dropped", n.dropped.Load()),
			slog.Int64("failed", n.failed.Load()))
		return nil
	case <-ctx.Done():
		n.logger.Warn("audit drain timeout, some events may be lost")
		return ctx.Err()
	}
}

// Stats returns delivery counters: events delivered to every sink, events
// dropped before queueing, and individual sink write failures.
func (n *Notifier) Stats() (delivered, dropped, failed int64) {
	return n.delivered.Load(), n.dropped.Load(), n.failed.Load()
}

func (n *Notifier) deliver(event Event) {
	ok := true
	for _, sink := range n.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		err := sink.Write(ctx, event)
		cancel()
		if err != nil {
			ok = false
			n.failed.Add(1)
			n.logger.Error("audit sink write failed",
				slog.String("sink", sink.Name()),
				slog.String("event_id", event.ID),
				slog.String("kind", string(event.Kind)),
				slog.String("error", err.Error()))
		}
	}
	if ok {
		n.delivered.Add(1)
	}
}
