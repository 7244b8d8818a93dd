// Package analytics accumulates replay statistics incrementally: every
// update is O(1) in time and additional memory regardless of run length.
// Only the exported equity curve grows with the run, because the report
// contract requires the full ordered sequence.
package analytics

import "math"

// DefaultAnnualization is the conventional trading-day scaling for the
// Sharpe ratio.
const DefaultAnnualization = 252

// Config fixes accumulator parameters for a run.
type Config struct {
	// Annualization scales the Sharpe ratio by sqrt(Annualization).
	// Zero means DefaultAnnualization.
	Annualization float64
}

// EquityPoint is one sample of the exported equity curve.
type EquityPoint struct {
	TimestampUs uint64  `json:"timestamp_us"`
	Equity      float64 `json:"equity"`
}

// Accumulator maintains running statistics over equity samples and trade
// P&L deltas. Mean and variance of per-event equity returns use Welford's
// incremental update, so no return history is buffered.
type Accumulator struct {
	cfg Config

	curve []EquityPoint

	peak        float64
	hasPeak     bool
	maxDrawdown float64

	lastEquity float64
	hasLast    bool
	n          uint64 // return samples
	mean       float64
	m2         float64

	trades uint64
	wins   uint64
	losses uint64
	sumPnL float64
}

func NewAccumulator(cfg Config) *Accumulator {
	if cfg.Annualization <= 0 {
		cfg.Annualization = DefaultAnnualization
	}
	return &Accumulator{cfg: cfg}
}

// OnEquity records one equity sample: appends to the exported curve, updates
// the running peak/drawdown, and feeds the per-period return into the
// Welford moments.
func (a *Accumulator) OnEquity(tsUs uint64, equity float64) {
	a.curve = append(a.curve, EquityPoint{TimestampUs: tsUs, Equity: equity})

	if !a.hasPeak || equity > a.peak {
		a.peak = equity
		a.hasPeak = true
	}
	// Drawdown as a fraction of peak; zero when the peak is non-positive.
	if a.peak > 0 {
		if dd := (a.peak - equity) / a.peak; dd > a.maxDrawdown {
			a.maxDrawdown = dd
		}
	}

	if a.hasLast {
		r := equity - a.lastEquity
		a.n++
		delta := r - a.mean
		a.mean += delta / float64(a.n)
		a.m2 += delta * (r - a.mean)
	}
	a.lastEquity = equity
	a.hasLast = true
}

// OnTrade records one fill's realized P&L delta. A zero delta counts toward
// tradeCount but neither wins nor losses.
func (a *Accumulator) OnTrade(realizedDelta float64) {
	a.trades++
	a.sumPnL += realizedDelta
	switch {
	case realizedDelta > 0:
		a.wins++
	case realizedDelta < 0:
		a.losses++
	}
}

// SharpeRatio is mean(returns)/stdev(returns)*sqrt(annualization), zero when
// fewer than two returns or volatility is degenerate.
func (a *Accumulator) SharpeRatio() float64 {
	if a.n < 2 {
		return 0
	}
	variance := a.m2 / float64(a.n)
	std := math.Sqrt(variance)
	if std < 1e-10 {
		return 0
	}
	return a.mean / std * math.Sqrt(a.cfg.Annualization)
}

// MaxDrawdown is the largest peak-to-trough equity decline seen so far, as a
// fraction of the peak.
func (a *Accumulator) MaxDrawdown() float64 { return a.maxDrawdown }

// Report assembles the final aggregate. Valid at any event boundary, so a
// cancelled replay still yields a consistent partial report.
func (a *Accumulator) Report() Report {
	var winRate float64
	if decided := a.wins + a.losses; decided > 0 {
		winRate = float64(a.wins) / float64(decided)
	}
	var avgTrade float64
	if a.trades > 0 {
		avgTrade = a.sumPnL / float64(a.trades)
	}
	var total float64
	if a.hasLast {
		total = a.lastEquity
	}
	return Report{
		TotalPnL:    total,
		SharpeRatio: a.SharpeRatio(),
		MaxDrawdown: a.maxDrawdown,
		WinRate:     winRate,
		TradeCount:  a.trades,
		Wins:        a.wins,
		Losses:      a.losses,
		AvgTradePnL: avgTrade,
		EquityCurve: a.curve,
	}
}
