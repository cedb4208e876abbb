package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/solroute/swapd/internal/domain"
	"github.com/solroute/swapd/internal/service"
)

// OrderService defines the methods that the order handler requires from the
// service layer.
type OrderService interface {
	Submit(ctx context.Context, req service.SubmitRequest) (domain.Order, error)
	Cancel(ctx context.Context, orderID string) error
	Get(ctx context.Context, orderID string) (domain.Order, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Order, error)
}

// OrderHandler serves order-related HTTP endpoints.
type OrderHandler struct {
	orders OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given service and logger.
func NewOrderHandler(orders OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// submitOrderRequest is the JSON body accepted by POST /api/orders.
type submitOrderRequest struct {
	InputToken  string  `json:"inputToken"`
	OutputToken string  `json:"outputToken"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	LimitPrice  float64 `json:"limitPrice"`
}

// submitOrderResponse is returned on successful submission. The client is
// expected to follow WsURL for live status updates.
type submitOrderResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	WsURL   string `json:"wsUrl"`
}

// orderView is the JSON representation of an order.
type orderView struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	InputToken     string  `json:"inputToken"`
	OutputToken    string  `json:"outputToken"`
	Amount         float64 `json:"amount"`
	LimitPrice     float64 `json:"limitPrice,omitempty"`
	Status         string  `json:"status"`
	Venue          string  `json:"venue,omitempty"`
	TxHash         string  `json:"txHash,omitempty"`
	ExecutionPrice float64 `json:"executionPrice,omitempty"`
	ErrorReason    string  `json:"errorReason,omitempty"`
	CreatedAt      string  `json:"createdAt"`
}

func viewOf(o domain.Order) orderView {
	return orderView{
		ID:             o.ID,
		Type:           string(o.Type),
		InputToken:     o.InputToken,
		OutputToken:    o.OutputToken,
		Amount:         o.Amount,
		LimitPrice:     o.LimitPrice,
		Status:         string(o.Status),
		Venue:          string(o.Venue),
		TxHash:         o.TxHash,
		ExecutionPrice: o.ExecutionPrice,
		ErrorReason:    o.ErrorReason,
		CreatedAt:      o.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// listOrdersResponse wraps the list orders response.
type listOrdersResponse struct {
	Orders []orderView `json:"orders"`
}

// SubmitOrder creates a new swap order and enqueues it for execution.
// POST /api/orders
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var body submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	order, err := h.orders.Submit(r.Context(), service.SubmitRequest{
		InputToken:  body.InputToken,
		OutputToken: body.OutputToken,
		Amount:      body.Amount,
		Type:        domain.OrderType(body.Type),
		LimitPrice:  body.LimitPrice,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrder) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: submit order failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to submit order")
		return
	}

	writeJSON(w, http.StatusCreated, submitOrderResponse{
		OrderID: order.ID,
		Status:  string(order.Status),
		WsURL:   fmt.Sprintf("/ws?order_id=%s", order.ID),
	})
}

// ListOrders returns the most recently created orders, newest first.
// GET /api/orders?limit=50
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list orders failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, viewOf(o))
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{Orders: views})
}

// GetOrder returns a single order by its ID.
// GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get order failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	writeJSON(w, http.StatusOK, viewOf(order))
}

// CancelOrder cancels a pending order by its ID. Orders that have already been
// claimed by a worker can no longer be cancelled and yield 409.
// DELETE /api/orders/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	if err := h.orders.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		if errors.Is(err, domain.ErrConflict) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: cancel order failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to cancel order")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"orderId": id,
		"status":  string(domain.OrderStatusCancelled),
	})
}
