// Package arrowpipeline serializes replay inputs and outputs as Apache
// Arrow IPC streams for downstream analysis tooling.
package arrowpipeline

import (
	"bytes"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"go.uber.org/zap"

	"github.com/iminoaru/zaphft/services/analytics"
	"github.com/iminoaru/zaphft/services/book"
)

// Pipeline converts snapshot streams and equity curves to Arrow IPC.
type Pipeline struct {
	memoryPool memory.Allocator
	logger     *zap.Logger
}

func NewPipeline(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		memoryPool: memory.NewGoAllocator(),
		logger:     logger,
	}
}

// ConvertSnapshots flattens the top of book per snapshot into an Arrow
// record batch and serializes it as an IPC stream.
func (p *Pipeline) ConvertSnapshots(snaps []book.Snapshot) ([]byte, error) {
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no snapshots to convert")
	}

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "timestamp_us", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "best_bid", Type: arrow.PrimitiveTypes.Float64},
		{Name: "best_bid_qty", Type: arrow.PrimitiveTypes.Float64},
		{Name: "best_ask", Type: arrow.PrimitiveTypes.Float64},
		{Name: "best_ask_qty", Type: arrow.PrimitiveTypes.Float64},
		{Name: "mid", Type: arrow.PrimitiveTypes.Float64},
		{Name: "spread", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	timestamps := make([]uint64, len(snaps))
	bestBids := make([]float64, len(snaps))
	bidQtys := make([]float64, len(snaps))
	bestAsks := make([]float64, len(snaps))
	askQtys := make([]float64, len(snaps))
	mids := make([]float64, len(snaps))
	spreads := make([]float64, len(snaps))

	for i := range snaps {
		snap := &snaps[i]
		timestamps[i] = snap.TimestampUs
		bestBids[i] = snap.BestBid()
		bidQtys[i] = snap.Bids[0].Quantity
		bestAsks[i] = snap.BestAsk()
		askQtys[i] = snap.Asks[0].Quantity
		mids[i] = snap.Mid()
		spreads[i] = snap.Spread()
	}

	tsBuilder := array.NewUint64Builder(p.memoryPool)
	tsBuilder.AppendValues(timestamps, nil)
	tsArray := tsBuilder.NewUint64Array()

	columns := []arrow.Array{tsArray}
	for _, vals := range [][]float64{bestBids, bidQtys, bestAsks, askQtys, mids, spreads} {
		b := array.NewFloat64Builder(p.memoryPool)
		b.AppendValues(vals, nil)
		columns = append(columns, b.NewFloat64Array())
	}

	record := array.NewRecord(schema, columns, int64(len(snaps)))
	defer record.Release()

	out, err := p.writeIPC(schema, record)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("converted snapshots to arrow",
		zap.Int("rows", len(snaps)), zap.Int("bytes", len(out)))
	return out, nil
}

// ConvertEquityCurve serializes a report's equity curve as an IPC stream.
func (p *Pipeline) ConvertEquityCurve(curve []analytics.EquityPoint) ([]byte, error) {
	if len(curve) == 0 {
		return nil, fmt.Errorf("no equity points to convert")
	}

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "timestamp_us", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "equity", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	timestamps := make([]uint64, len(curve))
	equities := make([]float64, len(curve))
	for i, pt := range curve {
		timestamps[i] = pt.TimestampUs
		equities[i] = pt.Equity
	}

	tsBuilder := array.NewUint64Builder(p.memoryPool)
	tsBuilder.AppendValues(timestamps, nil)
	eqBuilder := array.NewFloat64Builder(p.memoryPool)
	eqBuilder.AppendValues(equities, nil)

	record := array.NewRecord(schema,
		[]arrow.Array{tsBuilder.NewUint64Array(), eqBuilder.NewFloat64Array()},
		int64(len(curve)))
	defer record.Release()

	return p.writeIPC(schema, record)
}

// WriteEquityCurveFile writes the curve as an Arrow IPC file at path.
func (p *Pipeline) WriteEquityCurveFile(path string, curve []analytics.EquityPoint) error {
	data, err := p.ConvertEquityCurve(curve)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write arrow file: %w", err)
	}
	return nil
}

func (p *Pipeline) writeIPC(schema *arrow.Schema, record arrow.Record) ([]byte, error) {
	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(p.memoryPool))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("write arrow record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close arrow writer: %w", err)
	}
	return buf.Bytes(), nil
}
