package engine

import (
	"errors"
	"fmt"
	"sync"

	"sleipnir/internal/common"

	tomb "gopkg.in/tomb.v2"
)

// ErrUnknownSide is a caller bug: an order submitted without a side.
var ErrUnknownSide = errors.New("order side is unknown")

// Orderbook is a single instrument's limit order book. All mutation of
// the book (public operations and the good-for-day pruner alike) is
// serialized by one lock, so callers observe a single total order of
// admissions, trades and cancellations.
type Orderbook struct {
	mu     sync.Mutex
	orders map[common.OrderID]*entry
	bids   *levelTree
	asks   *levelTree

	// Aggregated per-price depth, maintained in lockstep with the level
	// queues on every insert, cancel and fill.
	aggBids *aggTree
	aggAsks *aggTree

	clock Clock
	t     tomb.Tomb
}

type Option func(*Orderbook)

// WithClock replaces the wall clock the good-for-day pruner schedules
// against. Tests use this to pin "now".
func WithClock(clock Clock) Option {
	return func(book *Orderbook) {
		book.clock = clock
	}
}

func NewOrderbook(opts ...Option) *Orderbook {
	book := &Orderbook{
		orders:  make(map[common.OrderID]*entry),
		bids:    newBidLevels(),
		asks:    newAskLevels(),
		aggBids: newBidDepth(),
		aggAsks: newAskDepth(),
		clock:   systemClock{},
	}
	for _, opt := range opts {
		opt(book)
	}
	book.t.Go(book.pruneGFD)
	return book
}

// Close stops the pruner and waits for it to exit. No sweep is in
// flight once Close returns.
func (book *Orderbook) Close() error {
	book.t.Kill(nil)
	return book.t.Wait()
}

// Add admits an order and returns the trades it produced, in match
// order. A rejection (duplicate identity, FAK with no cross, FOK with
// insufficient depth, MAR against an empty opposite side) returns no
// trades and no error, and leaves the book untouched. An unknown side
// is a logic fault and returns an error.
func (book *Orderbook) Add(order common.Order) ([]common.Trade, error) {
	book.mu.Lock()
	defer book.mu.Unlock()
	return book.add(order)
}

func (book *Orderbook) add(order common.Order) ([]common.Trade, error) {
	if _, ok := book.orders[order.ID]; ok {
		return nil, nil
	}

	if order.Side == common.SideUnknown {
		return nil, fmt.Errorf("order %d: %w", order.ID, ErrUnknownSide)
	}

	if order.Type == common.MAR {
		converted, ok := book.convertMAR(order)
		if !ok {
			return nil, nil
		}
		order = converted
	}

	if order.Type == common.FAK && !book.canMatch(order.Side, order.LimitPrice) {
		return nil, nil
	}

	if order.Type == common.FOK && !book.canFullyFill(order.Side, order.LimitPrice, order.Remaining) {
		return nil, nil
	}

	book.insert(&order)
	return book.match()
}

// insert places the order at the back of its side/price queue and
// indexes it by identity.
func (book *Orderbook) insert(order *common.Order) {
	levels := book.levels(order.Side)
	level, ok := levels.GetMut(&priceLevel{price: order.LimitPrice})
	if !ok {
		level = &priceLevel{price: order.LimitPrice}
		levels.Set(level)
	}

	e := &entry{order: order}
	level.push(e)
	book.orders[order.ID] = e
	book.updateDepth(order.Side, order.LimitPrice, order.Remaining, aggAdd)
}

// match consumes the cross: while the best bid and best ask overlap,
// the front orders of the two levels are paired in price-time priority.
// Emptied levels are dropped and the bests re-read until no cross
// remains, then any fill-and-kill order left at the top of the book is
// force-canceled.
func (book *Orderbook) match() ([]common.Trade, error) {
	var trades []common.Trade

	for {
		bestBid, bidOk := book.bids.MinMut()
		bestAsk, askOk := book.asks.MinMut()
		if !bidOk || !askOk || bestAsk.price > bestBid.price {
			break
		}

		for !bestBid.empty() && !bestAsk.empty() {
			trade, err := book.matchTop(bestBid, bestAsk)
			if err != nil {
				return trades, err
			}
			trades = append(trades, trade)
		}

		if bestBid.empty() {
			book.bids.Delete(bestBid)
		}
		if bestAsk.empty() {
			book.asks.Delete(bestAsk)
		}
	}

	book.cancelTopFAKs()

	return trades, nil
}

// matchTop fills the front orders of the two given levels against each
// other for the smaller remaining quantity. Each trade leg reports its
// own order's limit price; the legs differ whenever the resting limits
// do.
func (book *Orderbook) matchTop(bidLevel, askLevel *priceLevel) (common.Trade, error) {
	bid := bidLevel.head
	ask := askLevel.head

	quantity := min(bid.order.Remaining, ask.order.Remaining)

	if err := bid.order.Fill(quantity); err != nil {
		return common.Trade{}, err
	}
	if bid.order.Filled() {
		bidLevel.unlink(bid)
		delete(book.orders, bid.order.ID)
	}

	if err := ask.order.Fill(quantity); err != nil {
		return common.Trade{}, err
	}
	if ask.order.Filled() {
		askLevel.unlink(ask)
		delete(book.orders, ask.order.ID)
	}

	trade := common.Trade{
		Bid: common.TradeLeg{
			OrderID:  bid.order.ID,
			Price:    bid.order.LimitPrice,
			Quantity: quantity,
		},
		Ask: common.TradeLeg{
			OrderID:  ask.order.ID,
			Price:    ask.order.LimitPrice,
			Quantity: quantity,
		},
	}

	book.onMatch(common.Buy, bid.order.LimitPrice, quantity, bid.order.Filled())
	book.onMatch(common.Sell, ask.order.LimitPrice, quantity, ask.order.Filled())

	return trade, nil
}

func (book *Orderbook) onMatch(side common.Side, price common.Price, quantity common.Quantity, fullyFilled bool) {
	action := aggMatch
	if fullyFilled {
		action = aggRemove
	}
	book.updateDepth(side, price, quantity, action)
}

// cancelTopFAKs force-cancels a fill-and-kill order left at the front
// of either best level after a matching pass, so a FAK remainder never
// rests past the pass that admitted it.
func (book *Orderbook) cancelTopFAKs() {
	if bestBid, ok := book.bids.MinMut(); ok && !bestBid.empty() {
		if order := bestBid.head.order; order.Type == common.FAK {
			book.cancelLocked(order.ID)
		}
	}
	if bestAsk, ok := book.asks.MinMut(); ok && !bestAsk.empty() {
		if order := bestAsk.head.order; order.Type == common.FAK {
			book.cancelLocked(order.ID)
		}
	}
}

// canMatch reports whether an order at the given price would cross the
// opposing best.
func (book *Orderbook) canMatch(side common.Side, price common.Price) bool {
	switch side {
	case common.Buy:
		bestAsk, ok := book.asks.Min()
		return ok && bestAsk.price <= price
	case common.Sell:
		bestBid, ok := book.bids.Min()
		return ok && bestBid.price >= price
	}
	return false
}

// convertMAR rewrites a market-with-protection order as a GTC limit at
// the worst price resting on the opposite side. An empty opposite side
// rejects the order outright.
func (book *Orderbook) convertMAR(order common.Order) (common.Order, bool) {
	var worst *priceLevel
	var ok bool
	switch order.Side {
	case common.Buy:
		worst, ok = book.asks.Max()
	case common.Sell:
		worst, ok = book.bids.Max()
	}
	if !ok {
		return common.Order{}, false
	}

	order.Type = common.GTC
	order.LimitPrice = worst.price
	return order, true
}

// Cancel removes a resting order. Unknown identities are a no-op, never
// an error, and canceling twice is the same as canceling once.
func (book *Orderbook) Cancel(id common.OrderID) {
	book.mu.Lock()
	defer book.mu.Unlock()
	book.cancelLocked(id)
}

// CancelBatch cancels a set of orders under one lock acquisition. The
// pruner sweeps through here.
func (book *Orderbook) CancelBatch(ids ...common.OrderID) {
	book.mu.Lock()
	defer book.mu.Unlock()
	for _, id := range ids {
		book.cancelLocked(id)
	}
}

func (book *Orderbook) cancelLocked(id common.OrderID) {
	e, ok := book.orders[id]
	if !ok {
		return
	}
	delete(book.orders, id)

	order := e.order
	level := e.level
	level.unlink(e)
	if level.empty() {
		book.levels(order.Side).Delete(level)
	}

	book.updateDepth(order.Side, order.LimitPrice, order.Remaining, aggRemove)
}

// Modify is a cancel-replace: the order keeps its identity and type but
// re-enters admission with the change's side, price and quantity, so it
// forfeits its queue position. An unknown identity is a no-op.
func (book *Orderbook) Modify(id common.OrderID, change common.Change) ([]common.Trade, error) {
	book.mu.Lock()
	defer book.mu.Unlock()

	e, ok := book.orders[id]
	if !ok {
		return nil, nil
	}

	replacement := common.Order{
		ID:         id,
		Type:       e.order.Type,
		Side:       change.Side,
		LimitPrice: change.Price,
		Remaining:  change.Remaining,
	}

	book.cancelLocked(id)
	return book.add(replacement)
}

func (book *Orderbook) levels(side common.Side) *levelTree {
	if side == common.Buy {
		return book.bids
	}
	return book.asks
}

func (book *Orderbook) depth(side common.Side) *aggTree {
	if side == common.Buy {
		return book.aggBids
	}
	return book.aggAsks
}
