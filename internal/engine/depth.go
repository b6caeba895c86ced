package engine

import (
	"sleipnir/internal/common"

	"github.com/tidwall/btree"
)

// aggLevel is the per-price summary of one side of the book: total
// resting quantity and resting order count. Kept in lockstep with the
// level queues so feasibility checks never walk individual orders.
type aggLevel struct {
	price    common.Price
	quantity common.Quantity
	count    int
}

type aggTree = btree.BTreeG[*aggLevel]

func newBidDepth() *aggTree {
	return btree.NewBTreeG(func(a, b *aggLevel) bool {
		return a.price > b.price
	})
}

func newAskDepth() *aggTree {
	return btree.NewBTreeG(func(a, b *aggLevel) bool {
		return a.price < b.price
	})
}

type aggAction int

const (
	aggAdd aggAction = iota
	aggRemove
	aggMatch
)

// updateDepth applies one book mutation to the aggregated index:
// insertion adds quantity and count, removal (cancel or full fill)
// subtracts both, a partial fill subtracts quantity only.
func (book *Orderbook) updateDepth(side common.Side, price common.Price, quantity common.Quantity, action aggAction) {
	if side == common.SideUnknown {
		return
	}

	depth := book.depth(side)
	level, ok := depth.GetMut(&aggLevel{price: price})
	if !ok {
		level = &aggLevel{price: price}
		depth.Set(level)
	}

	switch action {
	case aggAdd:
		level.count++
		level.quantity += quantity
	case aggRemove:
		level.count--
		level.quantity -= quantity
	case aggMatch:
		level.quantity -= quantity
	}

	// A count of zero implies the quantity is zero too; the level goes
	// either way.
	if level.count <= 0 {
		depth.Delete(level)
	}
}

// canFullyFill reports whether an order of the given side, price and
// quantity could be matched in full against the opposing aggregated
// depth, walking levels best to worst while they stay within the limit.
func (book *Orderbook) canFullyFill(side common.Side, price common.Price, quantity common.Quantity) bool {
	if side == common.SideUnknown || !book.canMatch(side, price) {
		return false
	}
	if side == common.Buy {
		return book.canFullyFillBid(price, quantity)
	}
	return book.canFullyFillAsk(price, quantity)
}

func (book *Orderbook) canFullyFillBid(price common.Price, quantity common.Quantity) bool {
	if quantity == 0 {
		return true
	}
	fillable := false
	book.aggAsks.Scan(func(level *aggLevel) bool {
		if level.price > price {
			return false
		}
		if level.quantity >= quantity {
			fillable = true
			return false
		}
		quantity -= level.quantity
		return true
	})
	return fillable
}

func (book *Orderbook) canFullyFillAsk(price common.Price, quantity common.Quantity) bool {
	if quantity == 0 {
		return true
	}
	fillable := false
	book.aggBids.Scan(func(level *aggLevel) bool {
		if level.price < price {
			return false
		}
		if level.quantity >= quantity {
			fillable = true
			return false
		}
		quantity -= level.quantity
		return true
	})
	return fillable
}
