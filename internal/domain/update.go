package domain

// Update is a tagged state transition. Each variant carries exactly the
// payload its target status requires, so transition payloads are enforced
// statically instead of assembled field-by-field at the call site.
type Update interface {
	// Status is the status the order moves to when the update is applied.
	Status() OrderStatus
	// Apply writes the update's payload onto the order.
	Apply(o *Order)
}

// PendingUpdate returns an order to PENDING when an infrastructure failure
// sends its job back to the queue for another attempt.
type PendingUpdate struct{}

func (PendingUpdate) Status() OrderStatus { return OrderStatusPending }

func (PendingUpdate) Apply(o *Order) {
	o.Status = OrderStatusPending
}

// RoutingUpdate marks the worker's claim of a PENDING order.
type RoutingUpdate struct{}

func (RoutingUpdate) Status() OrderStatus { return OrderStatusRouting }

func (RoutingUpdate) Apply(o *Order) {
	o.Status = OrderStatusRouting
}

// BuildingUpdate records the venue the router selected.
type BuildingUpdate struct {
	Venue Venue
}

func (BuildingUpdate) Status() OrderStatus { return OrderStatusBuilding }

func (u BuildingUpdate) Apply(o *Order) {
	o.Status = OrderStatusBuilding
	o.Venue = u.Venue
}

// SubmittedUpdate marks the settlement request as issued.
type SubmittedUpdate struct{}

func (SubmittedUpdate) Status() OrderStatus { return OrderStatusSubmitted }

func (SubmittedUpdate) Apply(o *Order) {
	o.Status = OrderStatusSubmitted
}

// ConfirmedUpdate records a successful settlement.
type ConfirmedUpdate struct {
	TxHash         string
	ExecutionPrice float64
}

func (ConfirmedUpdate) Status() OrderStatus { return OrderStatusConfirmed }

func (u ConfirmedUpdate) Apply(o *Order) {
	o.Status = OrderStatusConfirmed
	o.TxHash = u.TxHash
	o.ExecutionPrice = u.ExecutionPrice
}

// FailedUpdate records a terminal failure with its reason.
type FailedUpdate struct {
	Reason string
}

func (FailedUpdate) Status() OrderStatus { return OrderStatusFailed }

func (u FailedUpdate) Apply(o *Order) {
	o.Status = OrderStatusFailed
	o.ErrorReason = u.Reason
}

// CancelledUpdate aborts a PENDING order before a worker claims it.
type CancelledUpdate struct{}

func (CancelledUpdate) Status() OrderStatus { return OrderStatusCancelled }

func (CancelledUpdate) Apply(o *Order) {
	o.Status = OrderStatusCancelled
}

// OrderEvent is the message published on the update bus for every state
// transition. Optional fields are present only when the transition set them.
type OrderEvent struct {
	OrderID        string      `json:"orderId"`
	Status         OrderStatus `json:"status"`
	Venue          Venue       `json:"venue,omitempty"`
	TxHash         string      `json:"txHash,omitempty"`
	ExecutionPrice float64     `json:"executionPrice,omitempty"`
	ErrorReason    string      `json:"errorReason,omitempty"`
}

// EventFor builds the bus message for applying u to the order with the given
// ID.
func EventFor(orderID string, u Update) OrderEvent {
	evt := OrderEvent{OrderID: orderID, Status: u.Status()}
	switch v := u.(type) {
	case BuildingUpdate:
		evt.Venue = v.Venue
	case ConfirmedUpdate:
		evt.TxHash = v.TxHash
		evt.ExecutionPrice = v.ExecutionPrice
	case FailedUpdate:
		evt.ErrorReason = v.Reason
	}
	return evt
}
