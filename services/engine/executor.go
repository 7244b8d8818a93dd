package engine

import (
	"fmt"

	"github.com/iminoaru/zaphft/services/book"
)

// ExecConfig bounds and prices simulated execution.
type ExecConfig struct {
	MaxPosition float64
	Filters     SymbolFilters
	Fees        ProportionalFee
}

// Executor validates order intents against risk limits and the current book
// state and computes simulated fills. Each intent is evaluated only within
// the event that produced it.
type Executor struct {
	cfg  ExecConfig
	fees FeeModel

	rejectedRisk   uint64
	partialFills   uint64
	droppedLimits  uint64
	droppedFilters uint64
}

func NewExecutor(cfg ExecConfig) *Executor {
	return &Executor{cfg: cfg, fees: cfg.Fees}
}

// Execute turns an intent into a Trade or a rejection.
//
// Validation order: symbol filters, then the position bound (wholesale
// reject, no reduce-only clipping), then matching. Limit intents fill at
// their own price only when it crosses the opposing best; market intents
// walk the opposing depth and fill at the volume-weighted price, with any
// unfillable remainder cancelled (returned alongside ErrInsufficientDepth).
func (e *Executor) Execute(intent OrderIntent, st *book.State, pos Position) (Trade, error) {
	// Market intents carry no price of their own; filter them against the
	// opposing best instead.
	refPrice := intent.Price
	if intent.Kind == OrderMarket {
		if intent.Side == book.Bid {
			refPrice = st.BestAsk
		} else {
			refPrice = st.BestBid
		}
	}
	price, qty, ok := EnforceFilters(e.cfg.Filters, refPrice, intent.Quantity)
	if !ok || qty <= 0 {
		e.droppedFilters++
		return Trade{}, fmt.Errorf("intent below minimum notional: %w", ErrUnmarketable)
	}
	if intent.Kind != OrderMarket {
		intent.Price = price
	}
	intent.Quantity = qty

	if e.cfg.MaxPosition > 0 {
		next := pos.Quantity + intent.SignedQuantity()
		if abs(next) > e.cfg.MaxPosition+qtyEpsilon {
			e.rejectedRisk++
			return Trade{}, fmt.Errorf("%s %s qty %.8f would breach max position %.8f: %w",
				intent.Side, intent.Kind, intent.Quantity, e.cfg.MaxPosition, ErrRiskLimitBreach)
		}
	}

	switch intent.Kind {
	case OrderMarket:
		return e.fillMarket(intent, st, pos)
	default:
		return e.fillLimit(intent, st, pos)
	}
}

// fillLimit fills a marketable limit intent at its own price. Price
// improvement is not modeled.
func (e *Executor) fillLimit(intent OrderIntent, st *book.State, pos Position) (Trade, error) {
	crosses := (intent.Side == book.Bid && intent.Price >= st.BestAsk) ||
		(intent.Side == book.Ask && intent.Price <= st.BestBid)
	if !crosses {
		e.droppedLimits++
		return Trade{}, ErrUnmarketable
	}
	fee := e.fees.Compute(intent.Side, intent.Price, intent.Quantity, true)
	return e.buildTrade(st.TimestampUs, intent.Side, intent.Price, intent.Quantity, fee, pos), nil
}

// fillMarket walks the opposing side's levels in order, accumulating fill
// quantity until the request is satisfied or depth runs out.
func (e *Executor) fillMarket(intent OrderIntent, st *book.State, pos Position) (Trade, error) {
	opposing := st.Levels(intent.Side.Opposite())
	remaining := intent.Quantity
	var filled, notional float64
	for _, lv := range opposing {
		if remaining <= qtyEpsilon {
			break
		}
		if lv.Quantity <= 0 || lv.Price <= 0 {
			continue
		}
		take := min(remaining, lv.Quantity)
		filled += take
		notional += take * lv.Price
		remaining -= take
	}
	if filled <= qtyEpsilon {
		e.partialFills++
		return Trade{}, fmt.Errorf("no visible depth on %s side: %w", intent.Side.Opposite(), ErrInsufficientDepth)
	}
	vwap := notional / filled
	fee := e.fees.Compute(intent.Side, vwap, filled, false)
	trade := e.buildTrade(st.TimestampUs, intent.Side, vwap, filled, fee, pos)
	if remaining > qtyEpsilon {
		e.partialFills++
		return trade, fmt.Errorf("filled %.8f of %.8f, remainder cancelled: %w",
			filled, intent.Quantity, ErrInsufficientDepth)
	}
	return trade, nil
}

func (e *Executor) buildTrade(tsUs uint64, side book.Side, price, qty, fee float64, pos Position) Trade {
	_, delta := applyFill(pos, side, price, qty, fee)
	return Trade{
		TimestampUs:      tsUs,
		Side:             side,
		Price:            price,
		Quantity:         qty,
		Fee:              fee,
		RealizedPnLDelta: delta,
	}
}

// Executor counters for run statistics. Filter drops (below minimum
// notional) are counted apart from limit intents that simply did not cross.
func (e *Executor) RejectedRisk() uint64   { return e.rejectedRisk }
func (e *Executor) PartialFills() uint64   { return e.partialFills }
func (e *Executor) DroppedLimits() uint64  { return e.droppedLimits }
func (e *Executor) DroppedFilters() uint64 { return e.droppedFilters }
