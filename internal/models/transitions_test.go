// internal/models/transitions_test.go
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusInit.CanTransitionTo(OrderStatusPendingPayment))
	assert.True(t, OrderStatusInit.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusPendingPayment.CanTransitionTo(OrderStatusPaid))
	assert.True(t, OrderStatusPaid.CanTransitionTo(OrderStatusShipped))
	assert.True(t, OrderStatusShipped.CanTransitionTo(OrderStatusDelivered))
	assert.True(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCompleted))

	// No skipping ahead
	assert.False(t, OrderStatusInit.CanTransitionTo(OrderStatusPaid))
	assert.False(t, OrderStatusPendingPayment.CanTransitionTo(OrderStatusShipped))
	assert.False(t, OrderStatusPaid.CanTransitionTo(OrderStatusCompleted))

	// No moving backwards
	assert.False(t, OrderStatusPaid.CanTransitionTo(OrderStatusPendingPayment))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusShipped))
}

func TestOrderTerminalStatesHaveNoExits(t *testing.T) {
	terminals := []OrderStatus{
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusReturned, OrderStatusDisputed,
	}
	all := []OrderStatus{
		OrderStatusInit, OrderStatusPendingPayment, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled,
		OrderStatusReturned, OrderStatusDisputed,
	}

	for _, terminal := range terminals {
		assert.True(t, terminal.IsTerminal(), "expected %s to be terminal", terminal)
		for _, target := range all {
			assert.False(t, terminal.CanTransitionTo(target),
				"terminal %s must not transition to %s", terminal, target)
		}
	}
	assert.False(t, OrderStatusPaid.IsTerminal())
}

func TestPaymentStatusTransitions(t *testing.T) {
	assert.True(t, PaymentStatusInitiated.CanTransitionTo(PaymentStatusPaid))
	assert.True(t, PaymentStatusInitiated.CanTransitionTo(PaymentStatusFailed))
	assert.False(t, PaymentStatusPaid.CanTransitionTo(PaymentStatusInitiated))
	assert.False(t, PaymentStatusPaid.CanTransitionTo(PaymentStatusFailed))
	assert.False(t, PaymentStatusFailed.CanTransitionTo(PaymentStatusPaid))
}

func TestPayoutStatusTransitions(t *testing.T) {
	assert.True(t, PayoutStatusPending.CanTransitionTo(PayoutStatusReleased))
	assert.True(t, PayoutStatusPending.CanTransitionTo(PayoutStatusFailed))

	// FAILED recovers only forward to RELEASED
	assert.True(t, PayoutStatusFailed.CanTransitionTo(PayoutStatusReleased))
	assert.False(t, PayoutStatusFailed.CanTransitionTo(PayoutStatusPending))

	// RELEASED is final
	assert.False(t, PayoutStatusReleased.CanTransitionTo(PayoutStatusPending))
	assert.False(t, PayoutStatusReleased.CanTransitionTo(PayoutStatusFailed))
}

func TestShipmentStatusTransitions(t *testing.T) {
	assert.True(t, ShipmentStatusCreated.CanTransitionTo(ShipmentStatusLabelCreated))
	assert.True(t, ShipmentStatusCreated.CanTransitionTo(ShipmentStatusInTransit))
	assert.True(t, ShipmentStatusLabelCreated.CanTransitionTo(ShipmentStatusInTransit))
	assert.True(t, ShipmentStatusInTransit.CanTransitionTo(ShipmentStatusDelivered))

	for _, from := range []ShipmentStatus{
		ShipmentStatusCreated, ShipmentStatusLabelCreated, ShipmentStatusInTransit,
	} {
		assert.True(t, from.CanTransitionTo(ShipmentStatusException))
	}

	assert.False(t, ShipmentStatusDelivered.CanTransitionTo(ShipmentStatusInTransit))
	assert.False(t, ShipmentStatusException.CanTransitionTo(ShipmentStatusInTransit))
	assert.False(t, ShipmentStatusCreated.CanTransitionTo(ShipmentStatusDelivered))
}

func TestAllDelivered(t *testing.T) {
	assert.False(t, AllDelivered(nil), "no shipments means nothing was delivered")

	shipments := []Shipment{
		{Status: ShipmentStatusDelivered},
		{Status: ShipmentStatusInTransit},
	}
	assert.False(t, AllDelivered(shipments))

	shipments[1].Status = ShipmentStatusDelivered
	assert.True(t, AllDelivered(shipments))
}

func TestContractCovers(t *testing.T) {
	now := time.Now()
	until := now.Add(24 * time.Hour)
	contract := Contract{
		ContractPrice: 80,
		MinQuantity:   10,
		Status:        ContractStatusActive,
		ValidFrom:     now.Add(-24 * time.Hour),
		ValidUntil:    &until,
	}

	assert.True(t, contract.Covers(10, now))
	assert.True(t, contract.Covers(500, now))
	assert.False(t, contract.Covers(9, now), "below the quantity tier")
	assert.False(t, contract.Covers(10, now.Add(-48*time.Hour)), "before the window")
	assert.False(t, contract.Covers(10, now.Add(48*time.Hour)), "after the window")

	contract.Status = ContractStatusSuspended
	assert.False(t, contract.Covers(10, now))

	// Open-ended contracts stay valid
	contract.Status = ContractStatusActive
	contract.ValidUntil = nil
	assert.True(t, contract.Covers(10, now.Add(1000*time.Hour)))
}
