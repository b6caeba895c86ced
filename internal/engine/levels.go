package engine

import (
	"sleipnir/internal/common"

	"github.com/tidwall/btree"
)

// entry is the authoritative record of a resting order: the order
// itself, the level it rests on, and its links within that level's FIFO
// queue. The order index and the level queues both address orders
// through entries, so removal by identity never scans a queue.
type entry struct {
	order *common.Order
	level *priceLevel
	prev  *entry
	next  *entry
}

// priceLevel is a FIFO queue of the orders resting at one price,
// intrusively linked through their entries.
type priceLevel struct {
	price common.Price
	head  *entry
	tail  *entry
}

func (level *priceLevel) push(e *entry) {
	e.level = level
	if level.head == nil {
		level.head = e
		level.tail = e
		return
	}
	e.prev = level.tail
	level.tail.next = e
	level.tail = e
}

func (level *priceLevel) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		level.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		level.tail = e.prev
	}
	e.prev = nil
	e.next = nil
	e.level = nil
}

func (level *priceLevel) empty() bool {
	return level.head == nil
}

type levelTree = btree.BTreeG[*priceLevel]

// newBidLevels sorts greatest price first, so Min is the best bid.
func newBidLevels() *levelTree {
	return btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price > b.price
	})
}

// newAskLevels sorts least price first, so Min is the best ask.
func newAskLevels() *levelTree {
	return btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price < b.price
	})
}
