package strategies

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iminoaru/zaphft/services/book"
	"github.com/iminoaru/zaphft/services/engine"
)

func momState(mid float64) *book.State {
	st := &book.State{TimestampUs: 1, Mid: mid, BestBid: mid - 0.5, BestAsk: mid + 0.5}
	for i := 0; i < book.Depth; i++ {
		st.Bids[i] = book.Level{Price: st.BestBid - float64(i), Quantity: 1}
		st.Asks[i] = book.Level{Price: st.BestAsk + float64(i), Quantity: 1}
	}
	return st
}

func TestMomentumWaitsForWindow(t *testing.T) {
	mom := NewMomentum(MomentumConfig{Lookback: 5, Threshold: 1, TradeSize: 0.1})
	for i := 0; i < 5; i++ {
		// Huge moves, but the window is not full yet.
		intents := mom.OnEvent(momState(100+float64(i)*10), engine.Position{})
		require.Empty(t, intents)
	}
}

func TestMomentumEntersOnceThenCoolsDown(t *testing.T) {
	cfg := MomentumConfig{Lookback: 3, Threshold: 1, TradeSize: 0.2, CooldownEvents: 4}
	mom := NewMomentum(cfg)

	var entries int
	var firstSide book.Side
	mid := 100.0
	for i := 0; i < 8; i++ {
		mid += 2 // persistent uptrend, always above threshold
		intents := mom.OnEvent(momState(mid), engine.Position{})
		if len(intents) > 0 {
			entries++
			firstSide = intents[0].Side
			require.Equal(t, engine.OrderMarket, intents[0].Kind)
			require.InDelta(t, 0.2, intents[0].Quantity, 1e-12)
		}
	}

	// Window fills at event 4 (lookback+1 mids): entry there, then a 4-event
	// cooldown swallows events 5-8.
	require.Equal(t, 1, entries)
	require.Equal(t, book.Bid, firstSide)
}

func TestMomentumReentersAfterCooldown(t *testing.T) {
	cfg := MomentumConfig{Lookback: 2, Threshold: 1, TradeSize: 0.1, CooldownEvents: 2}
	mom := NewMomentum(cfg)

	var entryEvents []int
	mid := 100.0
	for i := 0; i < 12; i++ {
		mid += 2
		if len(mom.OnEvent(momState(mid), engine.Position{})) > 0 {
			entryEvents = append(entryEvents, i)
		}
	}

	require.GreaterOrEqual(t, len(entryEvents), 2)
	for i := 1; i < len(entryEvents); i++ {
		require.Greater(t, entryEvents[i]-entryEvents[i-1], cfg.CooldownEvents)
	}
}

func TestMomentumShortsOnDowntrend(t *testing.T) {
	cfg := MomentumConfig{Lookback: 2, Threshold: 1, TradeSize: 0.1}
	mom := NewMomentum(cfg)

	mid := 100.0
	var side book.Side
	var entered bool
	for i := 0; i < 5; i++ {
		mid -= 2
		if intents := mom.OnEvent(momState(mid), engine.Position{}); len(intents) > 0 && !entered {
			side = intents[0].Side
			entered = true
		}
	}
	require.True(t, entered)
	require.Equal(t, book.Ask, side)
}

func TestMomentumIgnoresNoiseBelowThreshold(t *testing.T) {
	cfg := MomentumConfig{Lookback: 2, Threshold: 5, TradeSize: 0.1}
	mom := NewMomentum(cfg)

	mids := []float64{100, 100.5, 99.8, 100.2, 99.9, 100.1}
	for _, mid := range mids {
		require.Empty(t, mom.OnEvent(momState(mid), engine.Position{}))
	}
}

func TestBuildStrategyFromParams(t *testing.T) {
	strat, err := Build("momentum", map[string]string{"lookback": "10", "threshold": "2.5"})
	require.NoError(t, err)
	require.Equal(t, "momentum", strat.Name())

	strat, err = Build("market_maker", map[string]string{"spread_ticks": "4"})
	require.NoError(t, err)
	require.Equal(t, "market_maker", strat.Name())

	_, err = Build("momentum", map[string]string{"bogus": "1"})
	require.Error(t, err)

	_, err = Build("nope", nil)
	require.Error(t, err)
}
