// Package service implements the order-facing operations: submission with
// synchronous validation, cancellation, and lookups. Asynchronous execution
// belongs to the executor package.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/solroute/swapd/internal/domain"
	"github.com/solroute/swapd/internal/queue"
)

// SubmitRequest carries the caller-supplied fields for a new order.
type SubmitRequest struct {
	InputToken  string
	OutputToken string
	Amount      float64
	Type        domain.OrderType // defaults to MARKET when empty
	LimitPrice  float64
}

// OrderService owns order creation, cancellation, and lookups. Execution is
// decoupled: Submit only persists the order and enqueues its job.
type OrderService struct {
	store  domain.OrderStore
	queue  *queue.Queue
	pub    domain.EventPublisher
	logger *slog.Logger
}

// NewOrderService creates an OrderService with all required dependencies.
func NewOrderService(store domain.OrderStore, q *queue.Queue, pub domain.EventPublisher, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:  store,
		queue:  q,
		pub:    pub,
		logger: logger.With(slog.String("component", "order_service")),
	}
}

// validate checks the submission synchronously; invalid submissions never
// create an order.
func validate(req *SubmitRequest) error {
	if req.Type == "" {
		req.Type = domain.OrderTypeMarket
	}
	if !req.Type.Valid() {
		return fmt.Errorf("%w: unknown order type %q", domain.ErrInvalidOrder, req.Type)
	}
	if req.InputToken == "" || req.OutputToken == "" {
		return fmt.Errorf("%w: inputToken and outputToken are required", domain.ErrInvalidOrder)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidOrder)
	}
	if req.Type.RequiresLimitPrice() && req.LimitPrice <= 0 {
		return fmt.Errorf("%w: limitPrice must be positive for %s orders", domain.ErrInvalidOrder, req.Type)
	}
	if !req.Type.RequiresLimitPrice() && req.LimitPrice != 0 {
		return fmt.Errorf("%w: limitPrice is not allowed for %s orders", domain.ErrInvalidOrder, req.Type)
	}
	return nil
}

// Submit validates the request, persists the order in PENDING, enqueues its
// job, and returns immediately. The caller follows progress on the update
// stream.
func (s *OrderService) Submit(ctx context.Context, req SubmitRequest) (domain.Order, error) {
	if err := validate(&req); err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:          uuid.New().String(),
		Type:        req.Type,
		InputToken:  req.InputToken,
		OutputToken: req.OutputToken,
		Amount:      req.Amount,
		LimitPrice:  req.LimitPrice,
		Status:      domain.OrderStatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.Create(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("order_service: create order: %w", err)
	}
	s.pub.Publish(domain.EventFor(order.ID, domain.PendingUpdate{}))

	if err := s.queue.Enqueue(domain.JobFor(order)); err != nil {
		// The order exists but can never run; record the failure rather
		// than leaving it PENDING forever.
		reason := fmt.Sprintf("enqueue failed: %v", err)
		if updErr := s.store.Update(ctx, order.ID, domain.FailedUpdate{Reason: reason}); updErr != nil {
			s.logger.ErrorContext(ctx, "failed to record enqueue failure",
				slog.String("order_id", order.ID),
				slog.String("error", updErr.Error()),
			)
		} else {
			s.pub.Publish(domain.EventFor(order.ID, domain.FailedUpdate{Reason: reason}))
		}
		return domain.Order{}, fmt.Errorf("order_service: enqueue order %s: %w", order.ID, err)
	}

	s.logger.InfoContext(ctx, "order queued",
		slog.String("order_id", order.ID),
		slog.String("type", string(order.Type)),
		slog.String("input_token", order.InputToken),
		slog.String("output_token", order.OutputToken),
		slog.Float64("amount", order.Amount),
	)
	return order, nil
}

// Cancel aborts a PENDING order. The status transition is the arbiter of the
// race against a worker's claim: the compare-and-swap on PENDING has exactly
// one winner. The queued job is then withdrawn best-effort; if a worker
// already holds it, its claim will lose the same compare-and-swap and abort.
func (s *OrderService) Cancel(ctx context.Context, orderID string) error {
	err := s.store.Transition(ctx, orderID, domain.OrderStatusPending, domain.CancelledUpdate{})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		if errors.Is(err, domain.ErrConflict) {
			order, getErr := s.store.GetByID(ctx, orderID)
			if getErr != nil {
				return fmt.Errorf("order_service: cancel order %s: %w", orderID, getErr)
			}
			return fmt.Errorf("%w: order %s is %s and can no longer be cancelled",
				domain.ErrConflict, orderID, order.Status)
		}
		return fmt.Errorf("order_service: cancel order %s: %w", orderID, err)
	}

	if remErr := s.queue.Remove(orderID); remErr != nil && !errors.Is(remErr, domain.ErrJobClaimed) {
		s.logger.WarnContext(ctx, "queue removal failed",
			slog.String("order_id", orderID),
			slog.String("error", remErr.Error()),
		)
	}

	s.pub.Publish(domain.EventFor(orderID, domain.CancelledUpdate{}))
	s.logger.InfoContext(ctx, "order cancelled", slog.String("order_id", orderID))
	return nil
}

// Get retrieves a single order by its ID.
func (s *OrderService) Get(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("order_service: get order %s: %w", orderID, err)
	}
	return order, nil
}

// ListRecent returns the most recent orders, newest first.
func (s *OrderService) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	orders, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("order_service: list recent: %w", err)
	}
	return orders, nil
}
