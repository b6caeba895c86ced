package common

// OrderID is the caller-assigned order identity, unique for the life of
// the book.
type OrderID uint64

// Price is a limit price in ticks.
type Price uint64

// Quantity is an order or fill quantity in lots.
type Quantity uint64

type Side uint8

const (
	SideUnknown Side = iota
	Buy
	Sell
)

func (side Side) String() string {
	switch side {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return "UNKNOWN"
}

// OrderType selects the order's lifetime semantics at admission.
type OrderType uint16

const (
	TypeUnknown OrderType = iota
	// GTC rests until filled or canceled.
	GTC
	// FAK matches what it can immediately; the remainder is canceled.
	// Rejected outright when nothing crosses.
	FAK
	// FOK fills completely and immediately or not at all.
	FOK
	// GFD rests like GTC but is swept at the daily cutoff.
	GFD
	// MAR is market-with-protection: admitted as a GTC limit at the
	// worst price resting on the opposite side.
	MAR
)

func (orderType OrderType) String() string {
	switch orderType {
	case GTC:
		return "GTC"
	case FAK:
		return "FAK"
	case FOK:
		return "FOK"
	case GFD:
		return "GFD"
	case MAR:
		return "MAR"
	}
	return "UNKNOWN"
}
