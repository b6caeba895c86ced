package common

import (
	"errors"
	"fmt"
)

// ErrOverfill is a caller bug: a fill larger than the order's remaining
// quantity.
var ErrOverfill = errors.New("fill exceeds remaining quantity")

type Order struct {
	ID         OrderID   // Caller-assigned identity
	Type       OrderType // Lifetime semantics
	Side       Side      // Order side
	LimitPrice Price     // Limiting price
	Remaining  Quantity  // Unfilled quantity
}

// Fill reduces the remaining quantity. Filling past the remainder is a
// logic fault, not a market condition.
func (order *Order) Fill(quantity Quantity) error {
	if quantity > order.Remaining {
		return fmt.Errorf("order %d: %w", order.ID, ErrOverfill)
	}
	order.Remaining -= quantity
	return nil
}

func (order *Order) Filled() bool {
	return order.Remaining == 0
}

func (order Order) String() string {
	return fmt.Sprintf("%s %s %d@%d (id %d)",
		order.Type, order.Side, order.Remaining, order.LimitPrice, order.ID)
}
