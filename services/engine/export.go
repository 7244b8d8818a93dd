package engine

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/iminoaru/zaphft/services/analytics"
	"github.com/iminoaru/zaphft/services/book"
)

// Export is the full JSON document written after a run: run metadata, the
// aggregate report, trade history and derived risk metrics. The wallclock
// fields live only in Metadata; Summary is reproducible bit for bit.
type Export struct {
	Metadata ExportMetadata   `json:"metadata"`
	Summary  analytics.Report `json:"summary"`
	Trades   TradeHistory     `json:"trades"`
	Risk     RiskMetrics      `json:"risk"`
}

type ExportMetadata struct {
	StrategyName    string  `json:"strategy_name"`
	JobID           string  `json:"job_id"`
	DatasetSize     uint64  `json:"dataset_size"`
	DurationMs      float64 `json:"duration_ms"`
	Throughput      float64 `json:"throughput"`
	StartingCapital float64 `json:"starting_capital"`
	FinalCapital    float64 `json:"final_capital"`
	ReturnPct       float64 `json:"return_pct"`
}

type TradeExport struct {
	ID          int     `json:"id"`
	TimestampUs uint64  `json:"timestamp_us"`
	Side        string  `json:"side"`
	Price       float64 `json:"price"`
	Size        float64 `json:"size"`
	PnLImpact   float64 `json:"pnl_impact"`
}

type TradeHistory struct {
	AllTrades    []TradeExport `json:"all_trades"`
	BestTrade    *TradeExport  `json:"best_trade"`
	WorstTrade   *TradeExport  `json:"worst_trade"`
	RecentTrades []TradeExport `json:"recent_trades"`
}

type RiskMetrics struct {
	MaxDrawdown  float64 `json:"max_drawdown"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	ProfitFactor float64 `json:"profit_factor"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	LargestWin   float64 `json:"largest_win"`
	LargestLoss  float64 `json:"largest_loss"`
}

const recentTradeWindow = 10

// NewExport assembles the export document from a finished run.
func NewExport(res *RunResult, startingCapital float64) *Export {
	totalPnL := res.Report.TotalPnL
	returnPct := 0.0
	if startingCapital > 0 {
		returnPct = totalPnL / startingCapital * 100
	}
	return &Export{
		Metadata: ExportMetadata{
			StrategyName:    res.Strategy.Name,
			JobID:           res.JobID,
			DatasetSize:     res.EventsProcessed,
			DurationMs:      float64(res.Timing.Duration.Nanoseconds()) / 1e6,
			Throughput:      res.Timing.EventsPerSecond,
			StartingCapital: startingCapital,
			FinalCapital:    startingCapital + totalPnL,
			ReturnPct:       returnPct,
		},
		Summary: res.Report,
		Trades:  buildTradeHistory(res.Trades),
		Risk:    buildRiskMetrics(res.Trades, res.Report),
	}
}

func buildTradeHistory(trades []Trade) TradeHistory {
	all := make([]TradeExport, 0, len(trades))
	for i, t := range trades {
		side := "buy"
		if t.Side == book.Ask {
			side = "sell"
		}
		all = append(all, TradeExport{
			ID:          i,
			TimestampUs: t.TimestampUs,
			Side:        side,
			Price:       t.Price,
			Size:        t.Quantity,
			PnLImpact:   t.RealizedPnLDelta,
		})
	}

	var best, worst *TradeExport
	for i := range all {
		if best == nil || all[i].PnLImpact > best.PnLImpact {
			best = &all[i]
		}
		if worst == nil || all[i].PnLImpact < worst.PnLImpact {
			worst = &all[i]
		}
	}

	recent := all
	if len(recent) > recentTradeWindow {
		recent = recent[len(recent)-recentTradeWindow:]
	}
	return TradeHistory{AllTrades: all, BestTrade: best, WorstTrade: worst, RecentTrades: recent}
}

func buildRiskMetrics(trades []Trade, rep analytics.Report) RiskMetrics {
	var grossProfit, grossLoss, largestWin, largestLoss float64
	var wins, losses int
	for _, t := range trades {
		switch d := t.RealizedPnLDelta; {
		case d > 0:
			grossProfit += d
			wins++
			if d > largestWin {
				largestWin = d
			}
		case d < 0:
			grossLoss += -d
			losses++
			if -d > largestLoss {
				largestLoss = -d
			}
		}
	}
	var avgWin, avgLoss float64
	if wins > 0 {
		avgWin = grossProfit / float64(wins)
	}
	if losses > 0 {
		avgLoss = grossLoss / float64(losses)
	}
	return RiskMetrics{
		MaxDrawdown:  rep.MaxDrawdown,
		SharpeRatio:  rep.SharpeRatio,
		ProfitFactor: analytics.ProfitFactor(grossProfit, grossLoss),
		AvgWin:       avgWin,
		AvgLoss:      avgLoss,
		LargestWin:   largestWin,
		LargestLoss:  largestLoss,
	}
}

// WriteFile marshals the export as indented JSON at path.
func (e *Export) WriteFile(path string) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
