// Package bus provides the in-process publish/subscribe registry that fans
// order state transitions out from the worker to transport-layer consumers.
// A single Bus is owned by the application wiring and passed by handle to
// every publisher and subscriber; there is no ambient global emitter.
package bus

import (
	"log/slog"
	"sync"

	"github.com/solroute/swapd/internal/domain"
)

// subBufferSize bounds each subscriber's delivery channel. A full order
// lifecycle publishes at most five transitions, so the buffer is generous.
const subBufferSize = 16

type subscriber struct {
	ch chan domain.OrderEvent
}

// Bus is a pub/sub registry keyed by order ID. Subscribers receive every
// event for their order, independently and in publication order, until they
// unsubscribe.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*subscriber
	logger *slog.Logger
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[string][]*subscriber),
		logger: logger.With(slog.String("component", "bus")),
	}
}

// Publish delivers evt to every subscriber registered for its order ID.
// Delivery is non-blocking; a subscriber whose buffer is full has the event
// dropped rather than stalling the pipeline.
func (b *Bus) Publish(evt domain.OrderEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs[evt.OrderID] {
		select {
		case sub.ch <- evt:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				slog.String("order_id", evt.OrderID),
				slog.String("status", string(evt.Status)),
			)
		}
	}
}

// Subscribe registers interest in a single order's updates. It returns the
// delivery channel and an unsubscribe function that tears the subscription
// down and closes the channel. Unsubscribe is safe to call more than once.
func (b *Bus) Subscribe(orderID string) (<-chan domain.OrderEvent, func()) {
	sub := &subscriber{ch: make(chan domain.OrderEvent, subBufferSize)}

	b.mu.Lock()
	b.subs[orderID] = append(b.subs[orderID], sub)
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subs := b.subs[orderID]
			for i, s := range subs {
				if s == sub {
					b.subs[orderID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(b.subs[orderID]) == 0 {
				delete(b.subs, orderID)
			}
			close(sub.ch)
		})
	}

	return sub.ch, unsubscribe
}

// SubscriberCount returns the number of active subscriptions for an order.
func (b *Bus) SubscriberCount(orderID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[orderID])
}

var _ domain.EventPublisher = (*Bus)(nil)
