package common

// Change is a cancel-replace request. It carries no order type: a
// modified order keeps the type it was admitted with.
type Change struct {
	Side      Side
	Price     Price
	Remaining Quantity
}
