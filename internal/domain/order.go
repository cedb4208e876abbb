package domain

import (
	"time"
)

// OrderType selects the execution policy applied during routing.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeSniper OrderType = "SNIPER"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeSniper:
		return true
	}
	return false
}

// RequiresLimitPrice reports whether orders of this type must carry a
// minimum acceptable output amount.
func (t OrderType) RequiresLimitPrice() bool {
	return t == OrderTypeLimit || t == OrderTypeSniper
}

// Label returns the user-facing name used in threshold failure reasons.
func (t OrderType) Label() string {
	if t == OrderTypeSniper {
		return "Snipe"
	}
	return "Limit"
}

// OrderStatus tracks the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusRouting   OrderStatus = "ROUTING"
	OrderStatusBuilding  OrderStatus = "BUILDING"
	OrderStatusSubmitted OrderStatus = "SUBMITTED"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusFailed    OrderStatus = "FAILED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transition may leave this status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusConfirmed, OrderStatusFailed, OrderStatusCancelled:
		return true
	}
	return false
}

// transitions is the authoritative table of legal lifecycle moves. Both
// store implementations enforce it on every write: Update and Transition
// reject a move this table does not list with ErrConflict. The PENDING
// entries under ROUTING, BUILDING, and SUBMITTED are the retry resets the
// worker applies before re-enqueueing a failed job.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusRouting, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusRouting:   {OrderStatusBuilding, OrderStatusPending, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusBuilding:  {OrderStatusSubmitted, OrderStatusPending, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusSubmitted: {OrderStatusConfirmed, OrderStatusPending, OrderStatusFailed},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LegalSources returns every status from which moving to target is legal.
// The PostgreSQL store folds the result into its UPDATE guard so the
// status check and the write stay a single statement.
func LegalSources(target OrderStatus) []OrderStatus {
	var sources []OrderStatus
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == target {
				sources = append(sources, from)
				break
			}
		}
	}
	return sources
}

// Order is the unit of work tracked through the execution pipeline.
// ID, Type, the token pair, Amount, LimitPrice, and CreatedAt are immutable
// after creation; the remaining fields are written only by the worker or the
// cancellation path.
type Order struct {
	ID             string
	Type           OrderType
	InputToken     string
	OutputToken    string
	Amount         float64
	LimitPrice     float64 // zero for MARKET orders
	Status         OrderStatus
	Venue          Venue   // set once the router decides
	TxHash         string  // set only on successful settlement
	ExecutionPrice float64 // set only on successful settlement
	ErrorReason    string  // set only on failure
	CreatedAt      time.Time
}
