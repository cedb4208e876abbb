// Package memory provides an in-process implementation of the order store,
// used when the engine runs without PostgreSQL and by the test suite.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/solroute/swapd/internal/domain"
)

// OrderStore keeps orders in a mutex-guarded map. Transition carries the
// same atomicity guarantee as the PostgreSQL implementation: the status
// check and the write happen under one critical section.
type OrderStore struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

// NewOrderStore creates an empty in-memory store.
func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]domain.Order)}
}

// Create inserts a new order.
func (s *OrderStore) Create(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return fmt.Errorf("memory: create order %s: already exists", o.ID)
	}
	s.orders[o.ID] = o
	return nil
}

// GetByID returns a single order.
func (s *OrderStore) GetByID(_ context.Context, id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

// ListRecent returns up to limit orders, newest first.
func (s *OrderStore) ListRecent(_ context.Context, limit int) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Update applies u if the order's current status permits the move.
func (s *OrderStore) Update(_ context.Context, id string, u domain.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !domain.CanTransition(o.Status, u.Status()) {
		return fmt.Errorf("memory: update order %s to %s: current status %s: %w",
			id, u.Status(), o.Status, domain.ErrConflict)
	}
	u.Apply(&o)
	s.orders[id] = o
	return nil
}

// Transition applies u only while the order's status equals from.
func (s *OrderStore) Transition(_ context.Context, id string, from domain.OrderStatus, u domain.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != from {
		return fmt.Errorf("memory: transition order %s from %s: current status %s: %w",
			id, from, o.Status, domain.ErrConflict)
	}
	if !domain.CanTransition(from, u.Status()) {
		return fmt.Errorf("memory: transition order %s from %s to %s: illegal move: %w",
			id, from, u.Status(), domain.ErrConflict)
	}
	u.Apply(&o)
	s.orders[id] = o
	return nil
}

var _ domain.OrderStore = (*OrderStore)(nil)
