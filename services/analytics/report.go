package analytics

// Report is the aggregate outcome of one replay. It carries no wallclock
// fields, so identical inputs marshal to identical bytes.
type Report struct {
	TotalPnL    float64 `json:"total_pnl"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
	WinRate     float64 `json:"win_rate"`
	TradeCount  uint64  `json:"trade_count"`
	Wins        uint64  `json:"wins"`
	Losses      uint64  `json:"losses"`
	AvgTradePnL float64 `json:"avg_trade_pnl"`

	EquityCurve []EquityPoint `json:"equity_curve"`
}

// ProfitFactor is gross profit over gross loss given the split sums. Used by
// exporters that track win/loss sums alongside the accumulator.
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss <= 0 {
		if grossProfit > 0 {
			return grossProfit
		}
		return 0
	}
	return grossProfit / grossLoss
}
