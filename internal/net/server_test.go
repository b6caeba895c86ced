package net

import (
	"testing"

	"sleipnir/internal/common"
	"sleipnir/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *Server {
	book := engine.NewOrderbook()
	t.Cleanup(func() {
		assert.NoError(t, book.Close())
	})
	return New("127.0.0.1", 0, book)
}

func newOrderMsg(id common.OrderID, orderType common.OrderType, side common.Side, price common.Price, qty common.Quantity) NewOrderMessage {
	return NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		OrderID:     id,
		OrderType:   orderType,
		Side:        side,
		Price:       price,
		Quantity:    qty,
	}
}

func TestHandleNewOrder_DuplicateDoesNotStealOwner(t *testing.T) {
	s := testServer(t)

	s.handleNewOrder("session-a", newOrderMsg(1, common.GTC, common.Buy, 100, 10))
	owner, ok := s.owner(1)
	require.True(t, ok)
	require.Equal(t, "session-a", owner)

	// A second session re-submitting the same identity is ignored by
	// the engine; the resting order's report routing must survive.
	s.handleNewOrder("session-b", newOrderMsg(1, common.GTC, common.Sell, 100, 10))

	assert.True(t, s.book.Contains(1))
	owner, ok = s.owner(1)
	require.True(t, ok)
	assert.Equal(t, "session-a", owner)
}

func TestHandleNewOrder_RejectedOrderLeavesNoOwner(t *testing.T) {
	s := testServer(t)

	// FAK with nothing to cross never rests.
	s.handleNewOrder("session-a", newOrderMsg(1, common.FAK, common.Buy, 100, 10))

	_, ok := s.owner(1)
	assert.False(t, ok)
}

func TestHandleNewOrder_FilledOrderClearsOwner(t *testing.T) {
	s := testServer(t)

	s.handleNewOrder("session-a", newOrderMsg(1, common.GTC, common.Sell, 100, 10))
	s.handleNewOrder("session-b", newOrderMsg(2, common.GTC, common.Buy, 100, 10))

	// Both orders filled completely; neither should keep a routing
	// entry.
	_, ok := s.owner(1)
	assert.False(t, ok)
	_, ok = s.owner(2)
	assert.False(t, ok)
}

func TestSweepOwners_DropsPrunedEntries(t *testing.T) {
	s := testServer(t)

	s.handleNewOrder("session-a", newOrderMsg(1, common.GFD, common.Buy, 100, 10))
	s.handleNewOrder("session-a", newOrderMsg(2, common.GTC, common.Sell, 105, 10))

	// Cancellation outside the serving path, the way the daily pruner
	// removes good-for-day orders.
	s.book.CancelBatch(1)

	s.sweepOwners()

	_, ok := s.owner(1)
	assert.False(t, ok)
	owner, ok := s.owner(2)
	require.True(t, ok)
	assert.Equal(t, "session-a", owner)
}
