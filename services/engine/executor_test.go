package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iminoaru/zaphft/services/book"
)

func testState(bestBid, bestAsk float64) *book.State {
	st := &book.State{
		TimestampUs: 1,
		BestBid:     bestBid,
		BestAsk:     bestAsk,
		Mid:         (bestBid + bestAsk) / 2,
	}
	for i := 0; i < book.Depth; i++ {
		st.Bids[i] = book.Level{Price: bestBid - float64(i), Quantity: 1}
		st.Asks[i] = book.Level{Price: bestAsk + float64(i), Quantity: 1}
	}
	return st
}

func TestExecuteRejectsRiskBreachWholesale(t *testing.T) {
	e := NewExecutor(ExecConfig{MaxPosition: 1})
	pos := Position{Quantity: 0.8}

	intent := OrderIntent{Side: book.Bid, Price: 101, Quantity: 0.5, Kind: OrderLimit}
	_, err := e.Execute(intent, testState(99, 101), pos)
	require.ErrorIs(t, err, ErrRiskLimitBreach)
	require.Equal(t, uint64(1), e.RejectedRisk())

	// No reduce-only clipping: a smaller intent that fits goes through.
	intent.Quantity = 0.2
	trade, err := e.Execute(intent, testState(99, 101), pos)
	require.NoError(t, err)
	require.InDelta(t, 0.2, trade.Quantity, 1e-12)
}

func TestLimitFillsOnlyWhenCrossing(t *testing.T) {
	e := NewExecutor(ExecConfig{MaxPosition: 10})
	st := testState(99, 101)

	_, err := e.Execute(OrderIntent{Side: book.Bid, Price: 100, Quantity: 1, Kind: OrderLimit}, st, Position{})
	require.ErrorIs(t, err, ErrUnmarketable)
	require.Equal(t, uint64(1), e.DroppedLimits())

	trade, err := e.Execute(OrderIntent{Side: book.Bid, Price: 101, Quantity: 1, Kind: OrderLimit}, st, Position{})
	require.NoError(t, err)
	// Fills at the intent's own price, not the opposing best.
	require.InDelta(t, 101.0, trade.Price, 1e-12)
	require.Equal(t, book.Bid, trade.Side)
}

func TestMarketFillsAtVWAP(t *testing.T) {
	e := NewExecutor(ExecConfig{MaxPosition: 10})
	st := testState(99, 101)

	trade, err := e.Execute(OrderIntent{Side: book.Bid, Quantity: 2.5, Kind: OrderMarket}, st, Position{})
	require.NoError(t, err)
	require.InDelta(t, 2.5, trade.Quantity, 1e-12)
	// 1@101 + 1@102 + 0.5@103
	require.InDelta(t, (101+102+0.5*103)/2.5, trade.Price, 1e-12)
}

func TestMarketPartialFillOnThinDepth(t *testing.T) {
	e := NewExecutor(ExecConfig{MaxPosition: 100})
	st := testState(99, 101)
	for i := 2; i < book.Depth; i++ {
		st.Asks[i] = book.Level{}
	}

	trade, err := e.Execute(OrderIntent{Side: book.Bid, Quantity: 5, Kind: OrderMarket}, st, Position{})
	require.ErrorIs(t, err, ErrInsufficientDepth)
	require.InDelta(t, 2.0, trade.Quantity, 1e-12)
	require.InDelta(t, 101.5, trade.Price, 1e-12)
	require.Equal(t, uint64(1), e.PartialFills())
}

func TestMarketNoDepthNoTrade(t *testing.T) {
	e := NewExecutor(ExecConfig{MaxPosition: 100})
	st := testState(99, 101)
	for i := 0; i < book.Depth; i++ {
		st.Asks[i] = book.Level{}
	}

	trade, err := e.Execute(OrderIntent{Side: book.Bid, Quantity: 1, Kind: OrderMarket}, st, Position{})
	require.ErrorIs(t, err, ErrInsufficientDepth)
	require.Zero(t, trade.Quantity)
}

func TestExecuteAppliesFees(t *testing.T) {
	fees := ProportionalFee{Maker: 0.001, Taker: 0.002}
	e := NewExecutor(ExecConfig{MaxPosition: 10, Fees: fees})
	st := testState(99, 101)

	limit, err := e.Execute(OrderIntent{Side: book.Bid, Price: 101, Quantity: 1, Kind: OrderLimit}, st, Position{})
	require.NoError(t, err)
	require.InDelta(t, 101*0.001, limit.Fee, 1e-12)

	market, err := e.Execute(OrderIntent{Side: book.Ask, Quantity: 1, Kind: OrderMarket}, st, Position{})
	require.NoError(t, err)
	require.InDelta(t, 99*0.002, market.Fee, 1e-12)
}

func TestRealizedDeltaStampedOnTrade(t *testing.T) {
	e := NewExecutor(ExecConfig{MaxPosition: 10})
	st := testState(99, 101)
	pos := Position{Quantity: 1, AvgEntryPrice: 95}

	// Selling a long at 99 realizes (99-95)*1.
	trade, err := e.Execute(OrderIntent{Side: book.Ask, Price: 99, Quantity: 1, Kind: OrderLimit}, st, pos)
	require.NoError(t, err)
	require.InDelta(t, 4.0, trade.RealizedPnLDelta, 1e-12)
}

func TestFilterDropsCountedApartFromUncrossedLimits(t *testing.T) {
	e := NewExecutor(ExecConfig{
		MaxPosition: 10,
		Filters:     SymbolFilters{NotionalMin: 1000},
	})
	st := testState(99, 101)

	// Below the notional floor: a filter drop, not an uncrossed limit.
	_, err := e.Execute(OrderIntent{Side: book.Bid, Price: 101, Quantity: 1, Kind: OrderLimit}, st, Position{})
	require.ErrorIs(t, err, ErrUnmarketable)
	require.Equal(t, uint64(1), e.DroppedFilters())
	require.Zero(t, e.DroppedLimits())

	// Clears the floor but does not cross: counted as a dropped limit.
	_, err = e.Execute(OrderIntent{Side: book.Bid, Price: 100, Quantity: 10, Kind: OrderLimit}, st, Position{})
	require.ErrorIs(t, err, ErrUnmarketable)
	require.Equal(t, uint64(1), e.DroppedFilters())
	require.Equal(t, uint64(1), e.DroppedLimits())
}

func TestEnforceFiltersRounding(t *testing.T) {
	f := SymbolFilters{PriceTick: 0.5, QtyStep: 0.1, NotionalMin: 10}

	price, qty, ok := EnforceFilters(f, 100.26, 0.34)
	require.True(t, ok)
	require.InDelta(t, 100.5, price, 1e-12)
	require.InDelta(t, 0.3, qty, 1e-12)

	// 10.0 * 0.3 is below the notional floor.
	_, _, ok = EnforceFilters(f, 10, 0.3)
	require.False(t, ok)
}
