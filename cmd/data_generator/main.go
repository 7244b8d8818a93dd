// Package main produces a deterministic synthetic L2 dataset as CSV.
package main

import (
	"flag"
	"fmt"

	"github.com/iminoaru/zaphft/services/marketdata"
)

func main() {
	out := flag.String("out", "synthetic_l2.csv", "output CSV path")
	count := flag.Int("count", 100_000, "number of snapshots")
	seed := flag.Int64("seed", 42, "random walk seed")
	startPrice := flag.Float64("start-price", 30_000, "initial mid price")
	tickSize := flag.Float64("tick-size", 0.5, "price grid step")
	volatility := flag.Float64("volatility", 2.0, "per-event mid move stddev, in ticks")
	flag.Parse()

	cfg := marketdata.DefaultGeneratorConfig()
	cfg.Count = *count
	cfg.Seed = *seed
	cfg.StartPrice = *startPrice
	cfg.TickSize = *tickSize
	cfg.Volatility = *volatility

	snaps := marketdata.Generate(cfg)
	if err := marketdata.WriteCSV(*out, snaps); err != nil {
		panic(fmt.Sprintf("write csv: %v", err))
	}
	fmt.Printf("wrote %d snapshots to %s\n", len(snaps), *out)
}
