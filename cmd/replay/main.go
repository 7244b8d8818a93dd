// Package main runs a single replay from the command line and prints a
// summary, optionally writing the full JSON export and an Arrow equity
// curve.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/iminoaru/zaphft/services/arrowpipeline"
	"github.com/iminoaru/zaphft/services/config"
	"github.com/iminoaru/zaphft/services/engine"
	"github.com/iminoaru/zaphft/services/marketdata"
	"github.com/iminoaru/zaphft/strategies"
)

func main() {
	csvPath := flag.String("csv", "", "L2 snapshot CSV to replay")
	chTable := flag.String("ch-table", "", "ClickHouse table to replay (instead of -csv)")
	stratName := flag.String("strategy", "market_maker", "strategy: market_maker or momentum")
	params := flag.String("params", "", "strategy overrides, comma-separated key=value pairs")
	maxEvents := flag.Uint64("max-events", 0, "stop after this many events (0 = all)")
	maxPosition := flag.Float64("max-position", 1.0, "position bound enforced by the executor")
	makerFee := flag.Float64("maker-fee", 0.0002, "maker fee rate")
	takerFee := flag.Float64("taker-fee", 0.0005, "taker fee rate")
	capital := flag.Float64("capital", 10_000, "starting capital, used for the export return figures")
	outJSON := flag.String("out", "", "write the full JSON export here")
	outArrow := flag.String("arrow-out", "", "write the equity curve as Arrow IPC here")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	logger := buildLogger(*verbose)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, closeSrc, err := openSource(ctx, *csvPath, *chTable)
	if err != nil {
		logger.Fatal("open source", zap.Error(err))
	}
	defer closeSrc()

	strat, err := strategies.Build(*stratName, parseParams(*params))
	if err != nil {
		logger.Fatal("build strategy", zap.Error(err))
	}

	runCfg := engine.RunConfig{
		Name:      *stratName,
		MaxEvents: *maxEvents,
		Exec: engine.ExecConfig{
			MaxPosition: *maxPosition,
			Fees:        engine.ProportionalFee{Maker: *makerFee, Taker: *takerFee},
		},
	}

	res, err := engine.NewRunner(runCfg, logger).Run(ctx, src, strat)
	if err != nil {
		logger.Fatal("replay failed", zap.Error(err))
	}

	printSummary(res, *capital)

	if *outJSON != "" {
		export := engine.NewExport(res, *capital)
		if err := export.WriteFile(*outJSON); err != nil {
			logger.Fatal("write export", zap.Error(err))
		}
		fmt.Printf("export written to %s\n", *outJSON)
	}
	if *outArrow != "" {
		pipeline := arrowpipeline.NewPipeline(logger)
		if err := pipeline.WriteEquityCurveFile(*outArrow, res.Report.EquityCurve); err != nil {
			logger.Fatal("write arrow", zap.Error(err))
		}
		fmt.Printf("equity curve written to %s\n", *outArrow)
	}
}

func buildLogger(verbose bool) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func openSource(ctx context.Context, csvPath, chTable string) (engine.SnapshotSource, func(), error) {
	switch {
	case csvPath != "":
		src, err := marketdata.OpenCSV(csvPath)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	case chTable != "":
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		chCfg := marketdata.ClickHouseConfig{
			Addr:     cfg.ClickHouse.Addr,
			HTTPURL:  cfg.ClickHouse.HTTPURL,
			Database: cfg.ClickHouse.Database,
			Table:    chTable,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		}
		src, err := marketdata.OpenClickHouse(ctx, chCfg)
		if err != nil {
			return nil, nil, err
		}
		if err := src.Load(ctx); err != nil {
			src.Close()
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	}
	return nil, nil, fmt.Errorf("one of -csv or -ch-table is required")
}

func parseParams(s string) map[string]string {
	params := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "ignoring malformed parameter %q\n", pair)
			continue
		}
		params[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return params
}

func printSummary(res *engine.RunResult, capital float64) {
	rep := res.Report
	fmt.Printf("\n=== %s (%s) ===\n", res.Name, res.JobID)
	fmt.Printf("events processed:   %d\n", res.EventsProcessed)
	fmt.Printf("snapshots rejected: %d\n", res.SnapshotsRejected)
	fmt.Printf("total pnl:          %.4f\n", rep.TotalPnL)
	fmt.Printf("return:             %.2f%%\n", returnPct(rep.TotalPnL, capital))
	fmt.Printf("sharpe ratio:       %.4f\n", rep.SharpeRatio)
	fmt.Printf("max drawdown:       %.2f%%\n", rep.MaxDrawdown*100)
	fmt.Printf("trades:             %d (%d wins / %d losses, win rate %.1f%%)\n",
		rep.TradeCount, rep.Wins, rep.Losses, rep.WinRate*100)
	fmt.Printf("avg trade pnl:      %.6f\n", rep.AvgTradePnL)
	fmt.Printf("final position:     %.6f @ %.4f\n", res.Position.Quantity, res.Position.AvgEntryPrice)
	fmt.Printf("throughput:         %.0f events/s\n", res.Timing.EventsPerSecond)

	if res.Position.IsFlat() {
		return
	}
	fmt.Printf("unrealized pnl:     %.4f\n", res.Position.UnrealizedPnL)
}

func returnPct(pnl, capital float64) float64 {
	if capital <= 0 {
		return 0
	}
	return pnl / capital * 100
}
