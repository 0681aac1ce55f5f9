package domain

import "time"

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
	SideNone  Side = "NONE"
)

// Opposite returns the other trading side. SideNone maps to itself.
func (s Side) Opposite() Side {
	switch s {
	case SideLong:
		return SideShort
	case SideShort:
		return SideLong
	}
	return SideNone
}

// PositionState is the engine's belief about the live position. It is owned
// by the position book; nothing mutates it outside the book's transition
// methods. Direction == SideNone implies Quantity == 0 and EntryPrice unset.
type PositionState struct {
	Direction  Side
	Quantity   float64
	EntryPrice float64
	OpenedAt   time.Time
}

// Open reports whether a position is currently held.
func (p PositionState) Open() bool {
	return p.Direction != SideNone && p.Quantity > 0
}

// Position represents exchange-side truth, returned by position queries.
type Position struct {
	Symbol     string
	Side       Side
	Size       float64
	EntryPrice float64
	Leverage   int
}

type OrderSide string

const (
	OrderBuy  OrderSide = "buy"
	OrderSell OrderSide = "sell"
)

// OrderSideFor maps a position direction to the order side that opens it.
func OrderSideFor(d Side) OrderSide {
	if d == SideShort {
		return OrderSell
	}
	return OrderBuy
}

// OrderIntent is the sole unit passed to the exchange's order placement call.
type OrderIntent struct {
	Side       OrderSide
	Quantity   float64
	ReduceOnly bool
}

// OrderResult reports a confirmed order placement. FilledPrice is zero when
// the exchange does not return an average fill price synchronously.
type OrderResult struct {
	OrderID     string
	FilledPrice float64
}
