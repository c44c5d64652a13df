package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusDelivered, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
}

func TestOrderStatusCustomerCancellation(t *testing.T) {
	assert.True(t, OrderStatusPending.IsCancellableByCustomer())
	assert.True(t, OrderStatusConfirmed.IsCancellableByCustomer())
	assert.False(t, OrderStatusProcessing.IsCancellableByCustomer())
	assert.False(t, OrderStatusShipped.IsCancellableByCustomer())
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("processing")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusProcessing, status)

	_, err = ParseOrderStatus("PAID")
	require.Error(t, err)
}

func TestParseInventoryTxType(t *testing.T) {
	for _, raw := range []string{"sale", "restock", "adjustment", "return"} {
		txType, err := ParseInventoryTxType(raw)
		require.NoError(t, err)
		assert.True(t, txType.IsValid())
	}

	_, err := ParseInventoryTxType("refund")
	require.Error(t, err)
}
