package arrowpipeline

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/stretchr/testify/require"

	"github.com/iminoaru/zaphft/services/analytics"
	"github.com/iminoaru/zaphft/services/book"
)

func TestConvertEquityCurveRoundTrip(t *testing.T) {
	p := NewPipeline(nil)
	curve := []analytics.EquityPoint{
		{TimestampUs: 10, Equity: 1.5},
		{TimestampUs: 20, Equity: -0.5},
		{TimestampUs: 30, Equity: 2.25},
	}

	data, err := p.ConvertEquityCurve(curve)
	require.NoError(t, err)

	r, err := ipc.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Release()

	require.True(t, r.Next())
	rec := r.Record()
	require.EqualValues(t, 3, rec.NumRows())
	require.EqualValues(t, 2, rec.NumCols())

	ts := rec.Column(0).(*array.Uint64)
	eq := rec.Column(1).(*array.Float64)
	require.Equal(t, uint64(20), ts.Value(1))
	require.Equal(t, -0.5, eq.Value(1))
}

func TestConvertSnapshotsSchema(t *testing.T) {
	p := NewPipeline(nil)
	var snap book.Snapshot
	snap.TimestampUs = 99
	snap.Bids[0] = book.Level{Price: 100, Quantity: 1}
	snap.Asks[0] = book.Level{Price: 101, Quantity: 2}

	data, err := p.ConvertSnapshots([]book.Snapshot{snap})
	require.NoError(t, err)

	r, err := ipc.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Release()

	require.True(t, r.Next())
	rec := r.Record()
	require.EqualValues(t, 1, rec.NumRows())
	require.Equal(t, "mid", rec.Schema().Field(5).Name)

	mid := rec.Column(5).(*array.Float64)
	require.InDelta(t, 100.5, mid.Value(0), 1e-12)
}

func TestConvertRejectsEmptyInput(t *testing.T) {
	p := NewPipeline(nil)
	_, err := p.ConvertSnapshots(nil)
	require.Error(t, err)
	_, err = p.ConvertEquityCurve(nil)
	require.Error(t, err)
}
