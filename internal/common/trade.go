package common

import "fmt"

// TradeLeg records one side's participation in a match. The price is the
// owning order's limit price, not a shared clearing price, so the two
// legs of a trade may disagree when the resting limits differ.
type TradeLeg struct {
	OrderID  OrderID
	Price    Price
	Quantity Quantity
}

// Trade accounts for the two orders that matched, one leg per side.
type Trade struct {
	Bid TradeLeg
	Ask TradeLeg
}

func (t Trade) String() string {
	return fmt.Sprintf("trade %d: bid %d@%d / ask %d@%d",
		t.Bid.Quantity, t.Bid.OrderID, t.Bid.Price, t.Ask.OrderID, t.Ask.Price)
}
