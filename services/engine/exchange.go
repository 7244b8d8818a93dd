package engine

import "github.com/iminoaru/zaphft/services/book"

// Exchange filters and fee models.

// SymbolFilters rounds order parameters to instrument constraints before
// risk checks and matching.
type SymbolFilters struct {
	PriceTick   float64
	QtyStep     float64
	NotionalMin float64
}

// FeeModel computes the fee charged for a fill.
type FeeModel interface {
	Compute(side book.Side, price, qty float64, maker bool) float64
}

// ProportionalFee charges a fraction of notional, with separate maker and
// taker rates.
type ProportionalFee struct {
	Maker float64
	Taker float64
}

func (m ProportionalFee) Compute(_ book.Side, price, qty float64, maker bool) float64 {
	rate := m.Taker
	if maker {
		rate = m.Maker
	}
	return price * qty * rate
}

// EnforceFilters rounds price and quantity to the symbol constraints and
// reports whether the order still clears the minimum notional.
func EnforceFilters(f SymbolFilters, price, qty float64) (float64, float64, bool) {
	if f.PriceTick > 0 {
		price = roundStep(price, f.PriceTick)
	}
	if f.QtyStep > 0 {
		qty = roundStep(qty, f.QtyStep)
	}
	if f.NotionalMin > 0 && price*qty < f.NotionalMin {
		return price, qty, false
	}
	return price, qty, true
}

func roundStep(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	n := v / step
	if n >= 0 {
		return float64(int64(n+0.5)) * step
	}
	return float64(int64(n-0.5)) * step
}
