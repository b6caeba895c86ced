package engine

import "sleipnir/internal/common"

// LevelSnapshot is a point-in-time copy of one price level, orders in
// queue (arrival) order.
type LevelSnapshot struct {
	Price  common.Price
	Orders []common.Order
}

// DepthSnapshot is a point-in-time copy of one aggregated level.
type DepthSnapshot struct {
	Price    common.Price
	Quantity common.Quantity
	Count    int
}

// BidLevels returns the bid side best-first. The copies are detached
// from the book; mutating them changes nothing.
func (book *Orderbook) BidLevels() []LevelSnapshot {
	book.mu.Lock()
	defer book.mu.Unlock()
	return snapshotLevels(book.bids)
}

// AskLevels returns the ask side best-first.
func (book *Orderbook) AskLevels() []LevelSnapshot {
	book.mu.Lock()
	defer book.mu.Unlock()
	return snapshotLevels(book.asks)
}

func snapshotLevels(tree *levelTree) []LevelSnapshot {
	var out []LevelSnapshot
	tree.Scan(func(level *priceLevel) bool {
		snap := LevelSnapshot{Price: level.price}
		for e := level.head; e != nil; e = e.next {
			snap.Orders = append(snap.Orders, *e.order)
		}
		out = append(out, snap)
		return true
	})
	return out
}

// BidDepth returns the aggregated bid side best-first.
func (book *Orderbook) BidDepth() []DepthSnapshot {
	book.mu.Lock()
	defer book.mu.Unlock()
	return snapshotDepth(book.aggBids)
}

// AskDepth returns the aggregated ask side best-first.
func (book *Orderbook) AskDepth() []DepthSnapshot {
	book.mu.Lock()
	defer book.mu.Unlock()
	return snapshotDepth(book.aggAsks)
}

func snapshotDepth(tree *aggTree) []DepthSnapshot {
	var out []DepthSnapshot
	tree.Scan(func(level *aggLevel) bool {
		out = append(out, DepthSnapshot{
			Price:    level.price,
			Quantity: level.quantity,
			Count:    level.count,
		})
		return true
	})
	return out
}

// Contains reports whether an order with the given identity is resting.
func (book *Orderbook) Contains(id common.OrderID) bool {
	book.mu.Lock()
	defer book.mu.Unlock()
	_, ok := book.orders[id]
	return ok
}

// OrderCount is the number of resting orders across both sides.
func (book *Orderbook) OrderCount() int {
	book.mu.Lock()
	defer book.mu.Unlock()
	return len(book.orders)
}
