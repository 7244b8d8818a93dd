package book

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func makeSnapshot(ts uint64, bestBid, bestAsk float64) *Snapshot {
	snap := &Snapshot{TimestampUs: ts}
	for i := 0; i < Depth; i++ {
		snap.Bids[i] = Level{Price: bestBid - float64(i), Quantity: 1}
		snap.Asks[i] = Level{Price: bestAsk + float64(i), Quantity: 1}
	}
	return snap
}

func TestUpdateDerivesState(t *testing.T) {
	r := NewReconstructor(0)
	st, err := r.Update(makeSnapshot(1, 99, 101))
	require.NoError(t, err)
	require.Equal(t, 99.0, st.BestBid)
	require.Equal(t, 101.0, st.BestAsk)
	require.Equal(t, 100.0, st.Mid)
	require.Equal(t, 2.0, st.Spread)
	require.True(t, r.HasValid())
}

func TestCrossedBookReturnsLastValidState(t *testing.T) {
	r := NewReconstructor(0)
	valid, err := r.Update(makeSnapshot(1, 99, 101))
	require.NoError(t, err)

	crossed := makeSnapshot(2, 102, 101)
	st, err := r.Update(crossed)
	require.ErrorIs(t, err, ErrCrossedBook)
	require.Equal(t, valid, st)
	require.Equal(t, uint64(1), r.Rejected())
	require.Equal(t, uint64(2), r.Updates())
}

func TestCrossedBookBeforeAnyValidState(t *testing.T) {
	r := NewReconstructor(0)
	st, err := r.Update(makeSnapshot(1, 101, 100))
	require.ErrorIs(t, err, ErrCrossedBook)
	require.False(t, r.HasValid())
	require.Zero(t, st.Mid)
}

func TestValidateZeroQuantityMarksDepthEnd(t *testing.T) {
	snap := makeSnapshot(1, 99, 101)
	// Only three real bid levels; the rest absent.
	for i := 3; i < Depth; i++ {
		snap.Bids[i] = Level{}
	}
	require.NoError(t, snap.Validate())
}

func TestValidateRejectsNegativeQuantity(t *testing.T) {
	snap := makeSnapshot(1, 99, 101)
	snap.Asks[4].Quantity = -1
	require.ErrorIs(t, snap.Validate(), ErrInvalidBook)
}

func TestValidateRejectsDisorderedLevels(t *testing.T) {
	snap := makeSnapshot(1, 99, 101)
	snap.Bids[1].Price = 99.5 // above best bid
	require.ErrorIs(t, snap.Validate(), ErrInvalidBook)
}

func TestImbalance(t *testing.T) {
	snap := makeSnapshot(1, 99, 101)
	for i := 0; i < Depth; i++ {
		snap.Bids[i].Quantity = 3
		snap.Asks[i].Quantity = 1
	}
	// (30 - 10) / (30 + 10)
	require.InDelta(t, 0.5, snap.Imbalance(Depth), 1e-12)
}

func TestSlippageWalksDepth(t *testing.T) {
	r := NewReconstructor(0)
	snap := makeSnapshot(1, 99, 101)
	snap.Asks[0] = Level{Price: 101, Quantity: 2}
	snap.Asks[1] = Level{Price: 102, Quantity: 2}
	st, err := r.Update(snap)
	require.NoError(t, err)

	// Buying 3 takes 2@101 and 1@102.
	avg, _, levels, ok := st.SlippageForQuantity(Ask, 3)
	require.True(t, ok)
	require.Equal(t, 2, levels)
	require.InDelta(t, (2*101.0+1*102.0)/3.0, avg, 1e-12)
}

func TestLiquidityForNotional(t *testing.T) {
	r := NewReconstructor(0)
	st, err := r.Update(makeSnapshot(1, 99, 101))
	require.NoError(t, err)

	// 101 notional buys exactly the first ask level.
	qty, avg, levels := st.LiquidityForNotional(Ask, 101)
	require.InDelta(t, 1.0, qty, 1e-9)
	require.InDelta(t, 101.0, avg, 1e-9)
	require.Equal(t, 1, levels)
}
