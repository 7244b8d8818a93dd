package strategies

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iminoaru/zaphft/services/book"
	"github.com/iminoaru/zaphft/services/engine"
)

func mmConfig() MarketMakerConfig {
	return MarketMakerConfig{
		SpreadTicks:         2,
		QuoteSize:           0.1,
		MaxPosition:         1.0,
		TickSize:            0.1,
		InventoryThreshold:  0.8,
		InventorySkewTicks:  1.0,
		TrendFilterTicks:    5.0,
		HedgeInventoryRatio: 0.5,
		TrendWindow:         4,
	}
}

func mmState(mid float64) *book.State {
	st := &book.State{TimestampUs: 1, Mid: mid, BestBid: mid - 0.05, BestAsk: mid + 0.05}
	for i := 0; i < book.Depth; i++ {
		st.Bids[i] = book.Level{Price: st.BestBid - float64(i)*0.1, Quantity: 1}
		st.Asks[i] = book.Level{Price: st.BestAsk + float64(i)*0.1, Quantity: 1}
	}
	return st
}

func intentBySide(intents []engine.OrderIntent, side book.Side) (engine.OrderIntent, bool) {
	for _, in := range intents {
		if in.Side == side {
			return in, true
		}
	}
	return engine.OrderIntent{}, false
}

func TestMarketMakerQuotesBothSidesWhenFlat(t *testing.T) {
	mm := NewMarketMaker(mmConfig())
	intents := mm.OnEvent(mmState(100), engine.Position{})
	require.Len(t, intents, 2)

	bid, ok := intentBySide(intents, book.Bid)
	require.True(t, ok)
	ask, ok := intentBySide(intents, book.Ask)
	require.True(t, ok)

	// Half spread = (2/2)*0.1, no skew when flat.
	require.InDelta(t, 99.9, bid.Price, 1e-12)
	require.InDelta(t, 100.1, ask.Price, 1e-12)
	require.Equal(t, engine.OrderLimit, bid.Kind)
	require.InDelta(t, 0.1, bid.Quantity, 1e-12)
}

func TestMarketMakerSkewsAgainstInventory(t *testing.T) {
	mm := NewMarketMaker(mmConfig())
	pos := engine.Position{Quantity: 0.5} // half of max

	intents := mm.OnEvent(mmState(100), pos)
	bid, ok := intentBySide(intents, book.Bid)
	require.True(t, ok)
	ask, ok := intentBySide(intents, book.Ask)
	require.True(t, ok)

	// skew = 0.5 * 1.0 * 0.1: both quotes shifted down.
	require.InDelta(t, 99.85, bid.Price, 1e-12)
	require.InDelta(t, 100.05, ask.Price, 1e-12)
}

func TestMarketMakerHedgeSuppressesGrowingSide(t *testing.T) {
	mm := NewMarketMaker(mmConfig())
	pos := engine.Position{Quantity: 0.9} // past 0.8 threshold

	intents := mm.OnEvent(mmState(100), pos)
	require.Len(t, intents, 1)
	ask, ok := intentBySide(intents, book.Ask)
	require.True(t, ok)

	// Reducing side tightened: half spread halved, skew 0.9*0.1.
	require.InDelta(t, 100+0.05-0.09, ask.Price, 1e-12)

	_, hasBid := intentBySide(intents, book.Bid)
	require.False(t, hasBid)
}

func TestMarketMakerHedgeShortSide(t *testing.T) {
	mm := NewMarketMaker(mmConfig())
	pos := engine.Position{Quantity: -0.9}

	intents := mm.OnEvent(mmState(100), pos)
	require.Len(t, intents, 1)
	_, hasAsk := intentBySide(intents, book.Ask)
	require.False(t, hasAsk)
}

func TestMarketMakerTrendFilterSuppressesAdverseSide(t *testing.T) {
	cfg := mmConfig()
	cfg.TrendFilterTicks = 3 // threshold 0.3
	mm := NewMarketMaker(cfg)

	// Fill the trend window with a strong upward drift.
	mids := []float64{100, 100.5, 101, 101.5}
	var intents []engine.OrderIntent
	for _, mid := range mids {
		intents = mm.OnEvent(mmState(mid), engine.Position{})
	}

	// Uptrend with a flat position: the ask would be picked off.
	_, hasAsk := intentBySide(intents, book.Ask)
	require.False(t, hasAsk)
	_, hasBid := intentBySide(intents, book.Bid)
	require.True(t, hasBid)
}

func TestMarketMakerTrendFilterAllowsReducingSide(t *testing.T) {
	cfg := mmConfig()
	cfg.TrendFilterTicks = 3
	mm := NewMarketMaker(cfg)

	// Same uptrend but holding a long: selling reduces exposure, so the ask
	// stays quoted.
	mids := []float64{100, 100.5, 101, 101.5}
	var intents []engine.OrderIntent
	for _, mid := range mids {
		intents = mm.OnEvent(mmState(mid), engine.Position{Quantity: 0.5})
	}

	_, hasAsk := intentBySide(intents, book.Ask)
	require.True(t, hasAsk)
}

func TestMarketMakerRequotesOnlyPastHalfTick(t *testing.T) {
	mm := NewMarketMaker(mmConfig())

	mm.OnEvent(mmState(100), engine.Position{})
	placed := mm.Stats().QuotesPlaced
	require.Equal(t, uint64(2), placed)

	// Mid moved 0.02: under half a tick, quotes stand.
	intents := mm.OnEvent(mmState(100.02), engine.Position{})
	require.Equal(t, placed, mm.Stats().QuotesPlaced)
	bid, _ := intentBySide(intents, book.Bid)
	require.InDelta(t, 99.9, bid.Price, 1e-12)

	// Mid moved a full tick: both sides requote.
	mm.OnEvent(mmState(100.1), engine.Position{})
	require.Equal(t, placed+2, mm.Stats().QuotesPlaced)
}
