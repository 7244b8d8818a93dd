// Package main replays the same dataset under several strategies in
// parallel and prints a side-by-side comparison.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/iminoaru/zaphft/services/book"
	"github.com/iminoaru/zaphft/services/engine"
	"github.com/iminoaru/zaphft/services/marketdata"
	"github.com/iminoaru/zaphft/strategies"
)

func main() {
	csvPath := flag.String("csv", "", "L2 snapshot CSV to replay")
	stratList := flag.String("strategies", "market_maker,momentum", "comma-separated strategy names")
	maxEvents := flag.Uint64("max-events", 0, "stop after this many events (0 = all)")
	maxPosition := flag.Float64("max-position", 1.0, "position bound enforced by the executor")
	makerFee := flag.Float64("maker-fee", 0.0002, "maker fee rate")
	takerFee := flag.Float64("taker-fee", 0.0005, "taker fee rate")
	workers := flag.Int("workers", 4, "parallel runs")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *csvPath == "" {
		logger.Fatal("-csv is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snaps, err := loadAll(*csvPath)
	if err != nil {
		logger.Fatal("load csv", zap.Error(err))
	}
	logger.Info("dataset loaded", zap.Int("snapshots", len(snaps)))

	var specs []engine.RunSpec
	for _, name := range strings.Split(*stratList, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		// Validate the name up front so a typo fails before any run starts.
		if _, err := strategies.Build(name, nil); err != nil {
			logger.Fatal("unknown strategy", zap.String("strategy", name), zap.Error(err))
		}
		specs = append(specs, engine.RunSpec{
			Config: engine.RunConfig{
				Name:      name,
				MaxEvents: *maxEvents,
				Exec: engine.ExecConfig{
					MaxPosition: *maxPosition,
					Fees:        engine.ProportionalFee{Maker: *makerFee, Taker: *takerFee},
				},
			},
			NewSource: func() (engine.SnapshotSource, error) {
				return marketdata.NewSliceSource(snaps), nil
			},
			NewStrategy: func() engine.Strategy {
				strat, _ := strategies.Build(name, nil)
				return strat
			},
		})
	}

	results, err := engine.RunAll(ctx, specs, *workers, logger)
	if err != nil {
		logger.Fatal("comparison failed", zap.Error(err))
	}
	printComparison(results)
}

func loadAll(path string) ([]book.Snapshot, error) {
	src, err := marketdata.OpenCSV(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var snaps []book.Snapshot
	for {
		snap, err := src.Next()
		if err == io.EOF {
			return snaps, nil
		}
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
}

func printComparison(results []*engine.RunResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "strategy\tpnl\tsharpe\tmax dd\ttrades\twin rate\tevents/s")
	for _, res := range results {
		rep := res.Report
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.2f%%\t%d\t%.1f%%\t%.0f\n",
			res.Name, rep.TotalPnL, rep.SharpeRatio, rep.MaxDrawdown*100,
			rep.TradeCount, rep.WinRate*100, res.Timing.EventsPerSecond)
	}
	w.Flush()
}
