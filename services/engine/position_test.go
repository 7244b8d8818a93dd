package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iminoaru/zaphft/services/book"
)

func TestApplyBlendsAverageOnSameDirection(t *testing.T) {
	m := NewPositionManager()
	m.Apply(Trade{Side: book.Bid, Price: 100, Quantity: 1})
	pos := m.Apply(Trade{Side: book.Bid, Price: 110, Quantity: 1})

	require.InDelta(t, 2.0, pos.Quantity, 1e-12)
	require.InDelta(t, 105.0, pos.AvgEntryPrice, 1e-12)
	require.Zero(t, pos.RealizedPnL)
}

func TestApplyPartialCloseKeepsAverage(t *testing.T) {
	m := NewPositionManager()
	m.Apply(Trade{Side: book.Bid, Price: 100, Quantity: 2})
	pos := m.Apply(Trade{Side: book.Ask, Price: 110, Quantity: 1})

	require.InDelta(t, 1.0, pos.Quantity, 1e-12)
	require.InDelta(t, 100.0, pos.AvgEntryPrice, 1e-12)
	require.InDelta(t, 10.0, pos.RealizedPnL, 1e-12)
}

func TestApplyFlipResetsAverage(t *testing.T) {
	m := NewPositionManager()
	m.Apply(Trade{Side: book.Bid, Price: 100, Quantity: 1})
	pos := m.Apply(Trade{Side: book.Ask, Price: 110, Quantity: 3})

	require.InDelta(t, -2.0, pos.Quantity, 1e-12)
	require.InDelta(t, 110.0, pos.AvgEntryPrice, 1e-12)
	require.InDelta(t, 10.0, pos.RealizedPnL, 1e-12)
	require.True(t, pos.IsShort())
}

func TestApplyShortRealizesInvertedPnL(t *testing.T) {
	m := NewPositionManager()
	m.Apply(Trade{Side: book.Ask, Price: 100, Quantity: 1})
	pos := m.Apply(Trade{Side: book.Bid, Price: 90, Quantity: 1})

	require.True(t, pos.IsFlat())
	require.InDelta(t, 10.0, pos.RealizedPnL, 1e-12)
	require.Zero(t, pos.AvgEntryPrice)
}

func TestApplyDeductsFees(t *testing.T) {
	m := NewPositionManager()
	m.Apply(Trade{Side: book.Bid, Price: 100, Quantity: 1, Fee: 0.5})
	pos := m.Apply(Trade{Side: book.Ask, Price: 100, Quantity: 1, Fee: 0.5})

	require.True(t, pos.IsFlat())
	require.InDelta(t, -1.0, pos.RealizedPnL, 1e-12)
}

func TestMarkToMarket(t *testing.T) {
	m := NewPositionManager()
	m.Apply(Trade{Side: book.Bid, Price: 100, Quantity: 2})

	pos := m.MarkToMarket(103)
	require.InDelta(t, 6.0, pos.UnrealizedPnL, 1e-12)
	require.InDelta(t, 6.0, pos.Equity(), 1e-12)

	m.Apply(Trade{Side: book.Ask, Price: 103, Quantity: 2})
	pos = m.MarkToMarket(200)
	require.Zero(t, pos.UnrealizedPnL)
}

func TestVolumeAccounting(t *testing.T) {
	m := NewPositionManager()
	m.Apply(Trade{Side: book.Bid, Price: 100, Quantity: 2})
	m.Apply(Trade{Side: book.Ask, Price: 101, Quantity: 1.5})
	pos := m.Position()

	require.InDelta(t, 2.0, pos.TotalBought, 1e-12)
	require.InDelta(t, 1.5, pos.TotalSold, 1e-12)
	require.Equal(t, 2, pos.TradeCount)
	require.Len(t, m.Trades(), 2)
}

// Conservation: realized plus unrealized P&L recomputed from the trade log
// must equal notional gain minus fees, regardless of the fill sequence.
func TestPnLConservationFromTradeLog(t *testing.T) {
	trades := []Trade{
		{Side: book.Bid, Price: 100, Quantity: 2, Fee: 0.2},
		{Side: book.Ask, Price: 103, Quantity: 1, Fee: 0.1},
		{Side: book.Ask, Price: 97, Quantity: 3, Fee: 0.3},
		{Side: book.Bid, Price: 95, Quantity: 1, Fee: 0.1},
		{Side: book.Bid, Price: 102, Quantity: 2, Fee: 0.2},
	}

	m := NewPositionManager()
	for _, tr := range trades {
		m.Apply(tr)
	}
	const mark = 104.0
	pos := m.MarkToMarket(mark)

	var cash, qty, fees float64
	for _, tr := range trades {
		fees += tr.Fee
		if tr.Side == book.Bid {
			cash -= tr.Price * tr.Quantity
			qty += tr.Quantity
		} else {
			cash += tr.Price * tr.Quantity
			qty -= tr.Quantity
		}
	}
	expected := cash + qty*mark - fees

	require.InDelta(t, expected, pos.RealizedPnL+pos.UnrealizedPnL, 1e-9)
	require.InDelta(t, qty, pos.Quantity, 1e-12)
}
