package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusRouting, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusFailed, true},
		{OrderStatusRouting, OrderStatusBuilding, true},
		{OrderStatusRouting, OrderStatusFailed, true},
		{OrderStatusBuilding, OrderStatusSubmitted, true},
		{OrderStatusSubmitted, OrderStatusConfirmed, true},
		{OrderStatusSubmitted, OrderStatusFailed, true},

		// Retry resets: the worker returns a failed attempt to PENDING.
		{OrderStatusRouting, OrderStatusPending, true},
		{OrderStatusBuilding, OrderStatusPending, true},
		{OrderStatusSubmitted, OrderStatusPending, true},

		{OrderStatusPending, OrderStatusBuilding, false},
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatusPending, OrderStatusConfirmed, false},
		{OrderStatusRouting, OrderStatusConfirmed, false},
		{OrderStatusSubmitted, OrderStatusCancelled, false},
		{OrderStatusConfirmed, OrderStatusFailed, false},
		{OrderStatusFailed, OrderStatusRouting, false},
		{OrderStatusCancelled, OrderStatusRouting, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestLegalSources(t *testing.T) {
	assert.ElementsMatch(t,
		[]OrderStatus{OrderStatusRouting, OrderStatusBuilding, OrderStatusSubmitted},
		LegalSources(OrderStatusPending))
	assert.ElementsMatch(t,
		[]OrderStatus{OrderStatusPending, OrderStatusRouting, OrderStatusBuilding},
		LegalSources(OrderStatusCancelled))
	assert.Empty(t, LegalSources(OrderStatus("UNKNOWN")))
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusConfirmed, OrderStatusFailed, OrderStatusCancelled} {
		assert.True(t, s.Terminal(), string(s))
	}
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusRouting, OrderStatusBuilding, OrderStatusSubmitted} {
		assert.False(t, s.Terminal(), string(s))
	}
}

func TestOrderTypeValidation(t *testing.T) {
	assert.True(t, OrderTypeMarket.Valid())
	assert.True(t, OrderTypeLimit.Valid())
	assert.True(t, OrderTypeSniper.Valid())
	assert.False(t, OrderType("STOP").Valid())

	assert.False(t, OrderTypeMarket.RequiresLimitPrice())
	assert.True(t, OrderTypeLimit.RequiresLimitPrice())
	assert.True(t, OrderTypeSniper.RequiresLimitPrice())

	assert.Equal(t, "Limit", OrderTypeLimit.Label())
	assert.Equal(t, "Snipe", OrderTypeSniper.Label())
}

func TestUpdateApply(t *testing.T) {
	o := Order{ID: "o1", Status: OrderStatusPending}

	RoutingUpdate{}.Apply(&o)
	require.Equal(t, OrderStatusRouting, o.Status)

	BuildingUpdate{Venue: VenueRaydium}.Apply(&o)
	require.Equal(t, OrderStatusBuilding, o.Status)
	require.Equal(t, VenueRaydium, o.Venue)

	SubmittedUpdate{}.Apply(&o)
	require.Equal(t, OrderStatusSubmitted, o.Status)

	ConfirmedUpdate{TxHash: "5xabc", ExecutionPrice: 150.5}.Apply(&o)
	require.Equal(t, OrderStatusConfirmed, o.Status)
	require.Equal(t, "5xabc", o.TxHash)
	require.Equal(t, 150.5, o.ExecutionPrice)
	require.Empty(t, o.ErrorReason)
}

func TestUpdateApplyFailed(t *testing.T) {
	o := Order{ID: "o2", Status: OrderStatusRouting}

	FailedUpdate{Reason: "Limit price not met"}.Apply(&o)
	require.Equal(t, OrderStatusFailed, o.Status)
	require.Equal(t, "Limit price not met", o.ErrorReason)
	require.Empty(t, o.TxHash)
	require.Zero(t, o.ExecutionPrice)
}

func TestEventFor(t *testing.T) {
	evt := EventFor("o1", BuildingUpdate{Venue: VenueMeteora})
	assert.Equal(t, OrderEvent{OrderID: "o1", Status: OrderStatusBuilding, Venue: VenueMeteora}, evt)

	evt = EventFor("o1", ConfirmedUpdate{TxHash: "5xdef", ExecutionPrice: 151.2})
	assert.Equal(t, "5xdef", evt.TxHash)
	assert.Equal(t, 151.2, evt.ExecutionPrice)
	assert.Empty(t, evt.ErrorReason)

	evt = EventFor("o1", FailedUpdate{Reason: "boom"})
	assert.Equal(t, "boom", evt.ErrorReason)
	assert.Empty(t, evt.TxHash)
}
