package marketdata

import (
	"math/rand"

	"github.com/iminoaru/zaphft/services/book"
)

// GeneratorConfig shapes the synthetic random walk.
type GeneratorConfig struct {
	Seed       int64
	Count      int
	StartPrice float64
	TickSize   float64
	Volatility float64 // stddev of the per-event mid move, in ticks
	BaseQty    float64
	StartTsUs  uint64
	StepUs     uint64
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:       42,
		Count:      100_000,
		StartPrice: 30_000,
		TickSize:   0.5,
		Volatility: 2.0,
		BaseQty:    1.5,
		StartTsUs:  1_700_000_000_000_000,
		StepUs:     100_000,
	}
}

// Generate produces a deterministic synthetic L2 stream: mid follows a
// seeded random walk, each side carries ten one-tick-spaced levels with
// jittered quantities. The same config always yields the same stream.
func Generate(cfg GeneratorConfig) []book.Snapshot {
	rng := rand.New(rand.NewSource(cfg.Seed))
	snaps := make([]book.Snapshot, cfg.Count)
	mid := cfg.StartPrice

	for i := range snaps {
		mid += rng.NormFloat64() * cfg.Volatility * cfg.TickSize
		if mid < cfg.TickSize*float64(book.Depth+1) {
			mid = cfg.TickSize * float64(book.Depth+1)
		}
		snap := &snaps[i]
		snap.TimestampUs = cfg.StartTsUs + uint64(i)*cfg.StepUs

		halfSpread := cfg.TickSize / 2
		for j := 0; j < book.Depth; j++ {
			offset := halfSpread + float64(j)*cfg.TickSize
			snap.Bids[j] = book.Level{Price: mid - offset, Quantity: cfg.BaseQty * (1 + rng.Float64())}
			snap.Asks[j] = book.Level{Price: mid + offset, Quantity: cfg.BaseQty * (1 + rng.Float64())}
		}
	}
	return snaps
}
