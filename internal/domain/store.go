package domain

import (
	"context"
	"time"
)

// OrderStore persists orders. Implementations must make Transition atomic
// against the current persisted status: the claim/cancel race is resolved
// entirely by this guarantee.
type OrderStore interface {
	Create(ctx context.Context, order Order) error
	GetByID(ctx context.Context, id string) (Order, error)
	ListRecent(ctx context.Context, limit int) ([]Order, error)
	// Update applies u unconditionally. It returns ErrNotFound for unknown
	// orders.
	Update(ctx context.Context, id string, u Update) error
	// Transition applies u only while the persisted status equals from,
	// returning ErrConflict otherwise. Exactly one of two concurrent
	// Transition calls from the same status succeeds.
	Transition(ctx context.Context, id string, from OrderStatus, u Update) error
}

// RateLimiter bounds throughput over a rolling window. Wait blocks until a
// slot is available or the context is cancelled.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// EventPublisher fans an order event out to subscribers. The worker and the
// cancellation path publish through this; transports consume from the
// concrete bus.
type EventPublisher interface {
	Publish(evt OrderEvent)
}
