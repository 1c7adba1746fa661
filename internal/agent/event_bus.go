package agent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// allEventTypes is what Subscribe listens to when called without types.
var allEventTypes = []EventType{
	EventPlanFound, EventPlanFailed,
	EventActionStarted, EventActionAborted, EventActionCompleted,
	EventGoalCompleted,
}

// Delivery wraps an event published on an EventBus.
type Delivery struct {
	Seq   uint64 // Assigned in publish order, starting at 1.
	Event Event
}

// EventBus fans agent events out to subscribers. Sends block while a subscriber's
// buffer is full, so a slow consumer slows the simulation instead of losing events.
type EventBus struct {
	logger *zap.Logger

	subscribers map[EventType][]chan Delivery
	mu          sync.RWMutex
	bufferSize  int
	seq         atomic.Uint64

	// Deliveries not yet acknowledged.
	pending sync.WaitGroup
	// Publish calls in flight.
	publishing sync.WaitGroup

	closed   bool
	closedMu sync.Mutex
}

// NewEventBus creates a bus whose subscriber channels hold bufferSize deliveries.
func NewEventBus(logger *zap.Logger, bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventBus{
		logger:      logger.Named("event_bus"),
		subscribers: make(map[EventType][]chan Delivery),
		bufferSize:  bufferSize,
	}
}

// Record publishes e, making the bus usable as a simulation EventSink.
func (b *EventBus) Record(e Event) {
	if err := b.Publish(context.Background(), e); err != nil {
		b.logger.Debug("Dropped event", zap.String("type", string(e.Type)), zap.Error(err))
	}
}

// Publish delivers e to every subscriber of its type.
func (b *EventBus) Publish(ctx context.Context, e Event) (err error) {
	b.closedMu.Lock()
	if b.closed {
		b.closedMu.Unlock()
		return fmt.Errorf("cannot publish %s: event bus is shut down", e.Type)
	}
	b.publishing.Add(1)
	b.closedMu.Unlock()
	defer b.publishing.Done()

	// A send on a channel closed by Shutdown panics; the delivery it counted never happened.
	defer func() {
		if r := recover(); r != nil {
			b.pending.Done()
			b.logger.Debug("Recovered from send during shutdown", zap.Any("panic", r))
			err = fmt.Errorf("failed to publish %s: event bus is shutting down", e.Type)
		}
	}()

	b.mu.RLock()
	subs := append([]chan Delivery(nil), b.subscribers[e.Type]...)
	b.mu.RUnlock()
	if len(subs) == 0 {
		return nil
	}

	d := Delivery{Seq: b.seq.Add(1), Event: e}
	for _, ch := range subs {
		b.pending.Add(1)
		select {
		case ch <- d:
		case <-ctx.Done():
			b.pending.Done()
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe returns a channel receiving events of the given types, or of every
// type when none are given, and a function that cancels the subscription.
// Each received delivery must be acknowledged.
func (b *EventBus) Subscribe(types ...EventType) (<-chan Delivery, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(types) == 0 {
		types = allEventTypes
	}
	ch := make(chan Delivery, b.bufferSize)
	for _, t := range types {
		b.subscribers[t] = append(b.subscribers[t], ch)
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.isClosed() {
				return
			}
			for _, t := range types {
				subs := b.subscribers[t]
				for i, c := range subs {
					if c == ch {
						b.subscribers[t] = append(subs[:i:i], subs[i+1:]...)
						break
					}
				}
			}
			close(ch)
		})
	}
	return ch, unsubscribe
}

// Acknowledge marks a delivery as processed.
func (b *EventBus) Acknowledge(Delivery) {
	b.pending.Done()
}

// Shutdown stops accepting events, closes every subscriber channel and waits
// until all delivered events have been acknowledged.
func (b *EventBus) Shutdown() {
	b.closedMu.Lock()
	if b.closed {
		b.closedMu.Unlock()
		return
	}
	b.closed = true
	b.closedMu.Unlock()

	b.mu.Lock()
	unique := make(map[chan Delivery]struct{})
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			unique[ch] = struct{}{}
		}
	}
	for ch := range unique {
		close(ch)
	}
	b.subscribers = make(map[EventType][]chan Delivery)
	b.mu.Unlock()

	b.publishing.Wait()
	b.pending.Wait()
}

func (b *EventBus) isClosed() bool {
	b.closedMu.Lock()
	defer b.closedMu.Unlock()
	return b.closed
}
