// Package main uploads an L2 CSV export into ClickHouse: staged batch
// inserts over HTTP, an idempotency ledger keyed by file tag, then
// canonicalization into the typed snapshot table.
package main

import (
	"context"
	"flag"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/iminoaru/zaphft/services/config"
	"github.com/iminoaru/zaphft/services/marketdata"
)

func main() {
	csvPath := flag.String("csv", "", "L2 snapshot CSV to ingest")
	tag := flag.String("tag", "", "ledger tag for this file (default: file basename)")
	batchSize := flag.Int("batch-size", 1000, "rows per staging insert")
	force := flag.Bool("force", false, "ingest even if the tag is already in the ledger")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *csvPath == "" {
		logger.Fatal("-csv is required")
	}
	fileTag := *tag
	if fileTag == "" {
		fileTag = filepath.Base(*csvPath)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	chCfg := marketdata.ClickHouseConfig{
		Addr:     cfg.ClickHouse.Addr,
		HTTPURL:  cfg.ClickHouse.HTTPURL,
		Database: cfg.ClickHouse.Database,
		Table:    cfg.ClickHouse.Table,
		Username: cfg.ClickHouse.Username,
		Password: cfg.ClickHouse.Password,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ingester, err := marketdata.NewIngester(ctx, chCfg)
	if err != nil {
		logger.Fatal("connect clickhouse", zap.Error(err))
	}
	defer ingester.Close()

	if !*force {
		done, err := ingester.AlreadyIngested(ctx, fileTag)
		if err != nil {
			logger.Fatal("ledger check", zap.Error(err))
		}
		if done {
			logger.Info("already ingested, skipping", zap.String("tag", fileTag))
			return
		}
	}

	src, err := marketdata.OpenCSV(*csvPath)
	if err != nil {
		logger.Fatal("open csv", zap.Error(err))
	}
	defer src.Close()

	inserter := marketdata.NewBatchInserter(chCfg, fileTag, *batchSize)
	rows := 0
	for {
		snap, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Fatal("read csv", zap.Error(err))
		}
		if err := inserter.Add(snap); err != nil {
			logger.Fatal("stage rows", zap.Error(err))
		}
		rows++
	}
	if err := inserter.Close(); err != nil {
		logger.Fatal("flush staging", zap.Error(err))
	}
	logger.Info("staged", zap.Int("rows", rows), zap.String("tag", fileTag))

	if err := ingester.Canonicalize(ctx); err != nil {
		logger.Fatal("canonicalize", zap.Error(err))
	}
	if err := ingester.RecordIngest(ctx, fileTag, rows); err != nil {
		logger.Fatal("record ledger", zap.Error(err))
	}
	logger.Info("ingest complete", zap.Int("rows", rows), zap.String("tag", fileTag))
}
