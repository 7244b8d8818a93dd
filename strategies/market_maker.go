// Package strategies contains the strategy implementations driven by the
// replay engine. Strategies read derived book state and a position snapshot
// and emit order intents; they never reach into the book or the position
// manager.
package strategies

import (
	"github.com/iminoaru/zaphft/services/book"
	"github.com/iminoaru/zaphft/services/engine"
)

// MarketMakerConfig tunes the two-sided quoting strategy.
type MarketMakerConfig struct {
	SpreadTicks         float64 // quote offset from mid, in ticks (half per side)
	QuoteSize           float64
	MaxPosition         float64
	TickSize            float64
	InventoryThreshold  float64 // fraction of MaxPosition that triggers hedge mode
	InventorySkewTicks  float64
	TrendFilterTicks    float64
	HedgeInventoryRatio float64 // fraction of the half-spread given up to unwind
	TrendWindow         int     // mids kept for the drift estimate
}

// DefaultMarketMakerConfig mirrors the parameters used in the reference runs.
func DefaultMarketMakerConfig() MarketMakerConfig {
	return MarketMakerConfig{
		SpreadTicks:         0.5,
		QuoteSize:           0.1,
		MaxPosition:         1.0,
		TickSize:            0.05,
		InventoryThreshold:  0.9,
		InventorySkewTicks:  0.5,
		TrendFilterTicks:    0.5,
		HedgeInventoryRatio: 0.5,
		TrendWindow:         16,
	}
}

type quote struct {
	price  float64
	active bool
}

// MarketMaker quotes both sides of the book around mid, skewed against
// inventory. The only state it keeps is the last quoted prices (to avoid
// needless requoting) and a small ring of recent mids for the trend filter.
type MarketMaker struct {
	cfg MarketMakerConfig

	bid quote
	ask quote

	mids    []float64
	midHead int
	midLen  int

	updates uint64
	intents uint64
	quotes  uint64
}

func NewMarketMaker(cfg MarketMakerConfig) *MarketMaker {
	if cfg.TrendWindow < 2 {
		cfg.TrendWindow = 2
	}
	return &MarketMaker{cfg: cfg, mids: make([]float64, cfg.TrendWindow)}
}

func (m *MarketMaker) Name() string { return "market_maker" }

func (m *MarketMaker) Stats() engine.StrategyStats {
	return engine.StrategyStats{
		Name:             m.Name(),
		UpdatesProcessed: m.updates,
		IntentsEmitted:   m.intents,
		QuotesPlaced:     m.quotes,
	}
}

// OnEvent computes desired bid/ask quotes for the current state and returns
// up to two limit intents. A side is suppressed when it would grow an
// inventory already past the hedge threshold, or when it trades against a
// detected drift while the position cannot absorb it.
func (m *MarketMaker) OnEvent(st *book.State, pos engine.Position) []engine.OrderIntent {
	m.updates++
	trend := m.pushMid(st.Mid)

	halfSpread := (m.cfg.SpreadTicks / 2) * m.cfg.TickSize
	skew := m.inventorySkew(pos.Quantity)

	bidHalf, askHalf := halfSpread, halfSpread
	quoteBid, quoteAsk := true, true

	// Hedge mode: past the inventory threshold, stop growing the position
	// and tighten the reducing side toward mid to unwind faster.
	if m.cfg.MaxPosition > 0 && abs(pos.Quantity) > m.cfg.InventoryThreshold*m.cfg.MaxPosition {
		if pos.Quantity > 0 {
			quoteBid = false
			askHalf = (1 - m.cfg.HedgeInventoryRatio) * halfSpread
		} else {
			quoteAsk = false
			bidHalf = (1 - m.cfg.HedgeInventoryRatio) * halfSpread
		}
	}

	// Adverse-selection guard: do not quote into a drift the position
	// cannot absorb.
	if thr := m.cfg.TrendFilterTicks * m.cfg.TickSize; thr > 0 {
		if trend > thr && pos.Quantity <= 0 {
			quoteAsk = false
		}
		if trend < -thr && pos.Quantity >= 0 {
			quoteBid = false
		}
	}

	var out []engine.OrderIntent
	if quoteBid {
		price := st.Mid - bidHalf - skew
		m.requote(&m.bid, price)
		out = append(out, engine.OrderIntent{Side: book.Bid, Price: m.bid.price, Quantity: m.cfg.QuoteSize, Kind: engine.OrderLimit})
	} else {
		m.bid.active = false
	}
	if quoteAsk {
		price := st.Mid + askHalf - skew
		m.requote(&m.ask, price)
		out = append(out, engine.OrderIntent{Side: book.Ask, Price: m.ask.price, Quantity: m.cfg.QuoteSize, Kind: engine.OrderLimit})
	} else {
		m.ask.active = false
	}
	m.intents += uint64(len(out))
	return out
}

// requote moves a quote only when the desired price drifted at least half a
// tick from the standing one.
func (m *MarketMaker) requote(q *quote, desired float64) {
	if q.active && abs(q.price-desired) < m.cfg.TickSize*0.5 {
		return
	}
	q.price = desired
	q.active = true
	m.quotes++
}

// inventorySkew shifts both quotes down when long and up when short, pricing
// the strategy out of adding to its exposure.
func (m *MarketMaker) inventorySkew(positionQty float64) float64 {
	if m.cfg.MaxPosition <= 0 {
		return 0
	}
	ratio := positionQty / m.cfg.MaxPosition
	if ratio > 1 {
		ratio = 1
	} else if ratio < -1 {
		ratio = -1
	}
	return ratio * m.cfg.InventorySkewTicks * m.cfg.TickSize
}

// pushMid records a mid in the ring and returns newest minus oldest, the
// drift over the window. Zero until the ring fills.
func (m *MarketMaker) pushMid(mid float64) float64 {
	m.mids[m.midHead] = mid
	m.midHead = (m.midHead + 1) % len(m.mids)
	if m.midLen < len(m.mids) {
		m.midLen++
		if m.midLen < len(m.mids) {
			return 0
		}
	}
	return mid - m.mids[m.midHead]
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
