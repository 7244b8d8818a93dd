package engine

import "github.com/iminoaru/zaphft/services/book"

// OrderKind selects the execution semantics of an intent.
type OrderKind int

const (
	OrderLimit OrderKind = iota
	OrderMarket
)

func (k OrderKind) String() string {
	if k == OrderMarket {
		return "market"
	}
	return "limit"
}

// OrderIntent is a strategy's request for execution. Produced and consumed
// within a single replay event; never persisted.
type OrderIntent struct {
	Side     book.Side
	Price    float64 // ignored for market intents
	Quantity float64
	Kind     OrderKind
}

// SignedQuantity is positive for buys and negative for sells.
func (o OrderIntent) SignedQuantity() float64 {
	if o.Side == book.Bid {
		return o.Quantity
	}
	return -o.Quantity
}

// Trade is a simulated fill. Immutable once created; appended to the run's
// trade log. RealizedPnLDelta is the average-cost realized P&L of this fill
// net of its fee.
type Trade struct {
	TimestampUs      uint64
	Side             book.Side
	Price            float64
	Quantity         float64
	Fee              float64
	RealizedPnLDelta float64
}

// Notional is price * quantity.
func (t Trade) Notional() float64 { return t.Price * t.Quantity }
