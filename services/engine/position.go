package engine

import "github.com/iminoaru/zaphft/services/book"

const qtyEpsilon = 1e-10

// Position is the instrument exposure under average-cost accounting.
// Quantity is signed: positive long, negative short.
type Position struct {
	Quantity      float64
	AvgEntryPrice float64
	RealizedPnL   float64
	UnrealizedPnL float64
	TotalBought   float64
	TotalSold     float64
	TradeCount    int
}

func (p Position) IsLong() bool  { return p.Quantity > qtyEpsilon }
func (p Position) IsShort() bool { return p.Quantity < -qtyEpsilon }
func (p Position) IsFlat() bool  { return !p.IsLong() && !p.IsShort() }

// Equity is realized plus mark-to-market P&L.
func (p Position) Equity() float64 { return p.RealizedPnL + p.UnrealizedPnL }

// applyFill is the pure average-cost update: it returns the position after
// the fill and the realized P&L delta net of fee.
//
//   - Same-direction fill (or flat): new average is the volume-weighted
//     blend of the old average and the fill price.
//   - Reducing fill that does not cross zero: average unchanged, P&L
//     realized on the closed quantity against the old average.
//   - Sign-flipping fill: realize the closed portion at the old average,
//     then open the remainder fresh at the fill price.
func applyFill(p Position, side book.Side, price, qty, fee float64) (Position, float64) {
	if qty <= 0 {
		return p, 0
	}
	signed := qty
	if side == book.Ask {
		signed = -qty
	}

	realized := -fee
	oldQty := p.Quantity
	newQty := oldQty + signed

	closing := (oldQty > qtyEpsilon && side == book.Ask) ||
		(oldQty < -qtyEpsilon && side == book.Bid)

	switch {
	case !closing:
		// Adding to the position (or opening from flat).
		oldAbs := abs(oldQty)
		if oldAbs <= qtyEpsilon {
			p.AvgEntryPrice = price
		} else {
			p.AvgEntryPrice = (oldAbs*p.AvgEntryPrice + qty*price) / (oldAbs + qty)
		}
	case abs(newQty) <= qtyEpsilon || sameSign(oldQty, newQty):
		// Reducing without crossing zero.
		closed := min(qty, abs(oldQty))
		realized += closedPnL(oldQty, p.AvgEntryPrice, price, closed)
		if abs(newQty) <= qtyEpsilon {
			newQty = 0
			p.AvgEntryPrice = 0
		}
	default:
		// Flip: close everything, reopen the remainder at the fill price.
		realized += closedPnL(oldQty, p.AvgEntryPrice, price, abs(oldQty))
		p.AvgEntryPrice = price
	}

	p.Quantity = newQty
	p.RealizedPnL += realized
	p.TradeCount++
	if side == book.Bid {
		p.TotalBought += qty
	} else {
		p.TotalSold += qty
	}
	return p, realized
}

// closedPnL realizes P&L on closedQty against the old average:
// (price - avg) * closedQty for a long, mirrored for a short.
func closedPnL(oldQty, avg, price, closedQty float64) float64 {
	if oldQty > 0 {
		return (price - avg) * closedQty
	}
	return (avg - price) * closedQty
}

// markToMarket recomputes unrealized P&L at the given mark price.
func (p Position) markToMarket(mark float64) Position {
	if p.IsFlat() {
		p.UnrealizedPnL = 0
		return p
	}
	p.UnrealizedPnL = (mark - p.AvgEntryPrice) * p.Quantity
	return p
}

// PositionManager owns the position state for one replay and the append-only
// trade log. It is the only component that mutates Position.
type PositionManager struct {
	pos    Position
	trades []Trade
}

func NewPositionManager() *PositionManager { return &PositionManager{} }

// Apply folds a trade into the position under the average-cost rule and
// appends it to the trade log.
func (m *PositionManager) Apply(t Trade) Position {
	m.pos, _ = applyFill(m.pos, t.Side, t.Price, t.Quantity, t.Fee)
	m.trades = append(m.trades, t)
	return m.pos
}

// MarkToMarket refreshes unrealized P&L at the current mid and returns the
// position snapshot.
func (m *PositionManager) MarkToMarket(mid float64) Position {
	m.pos = m.pos.markToMarket(mid)
	return m.pos
}

// Position returns the current position value.
func (m *PositionManager) Position() Position { return m.pos }

// Trades returns the append-only trade log.
func (m *PositionManager) Trades() []Trade { return m.trades }

func sameSign(a, b float64) bool { return (a > 0) == (b > 0) }

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
