package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iminoaru/zaphft/services/analytics"
	"github.com/iminoaru/zaphft/services/book"
)

// SnapshotSource feeds snapshots to a replay in timestamp order. Next
// returns io.EOF when the stream is exhausted.
type SnapshotSource interface {
	Next() (*book.Snapshot, error)
}

// RunConfig parameterizes one replay run.
type RunConfig struct {
	Name           string
	MaxEvents      uint64 // 0 means unbounded
	ImbalanceDepth int
	Annualization  float64
	Exec           ExecConfig
}

// RunTiming holds wallclock measurements of a run. Kept outside the report
// so the report stays byte-identical across identical runs.
type RunTiming struct {
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration_ns"`
	EventsPerSecond float64       `json:"events_per_second"`
}

// RunResult is everything one replay produced.
type RunResult struct {
	JobID    string           `json:"job_id"`
	Name     string           `json:"name"`
	Report   analytics.Report `json:"report"`
	Position Position         `json:"position"`
	Trades   []Trade          `json:"trades"`
	Strategy StrategyStats    `json:"strategy"`

	EventsProcessed   uint64 `json:"events_processed"`
	SnapshotsRejected uint64 `json:"snapshots_rejected"`
	RiskRejects       uint64 `json:"risk_rejects"`
	PartialFills      uint64 `json:"partial_fills"`

	Timing RunTiming `json:"timing"`
}

// Runner replays one snapshot stream through a strategy. A Runner is
// single-use and strictly sequential; run several Runners in parallel for
// multi-strategy sweeps.
type Runner struct {
	cfg    RunConfig
	log    *zap.Logger
	events *EventLog
}

func NewRunner(cfg RunConfig, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ImbalanceDepth <= 0 {
		cfg.ImbalanceDepth = book.Depth
	}
	return &Runner{cfg: cfg, log: log, events: &EventLog{}}
}

// Events is the forensic log of the last run.
func (r *Runner) Events() *EventLog { return r.events }

// Run drives the replay loop until the source ends, MaxEvents is reached,
// the context is cancelled, or a fatal input error occurs.
//
// Cancellation is only observed at event boundaries, so the partial result
// is internally consistent. Crossed or invalid snapshots are logged and the
// last valid state is reused for that event; a timestamp that moves
// backwards is fatal.
func (r *Runner) Run(ctx context.Context, src SnapshotSource, strat Strategy) (*RunResult, error) {
	started := time.Now()
	recon := book.NewReconstructor(r.cfg.ImbalanceDepth)
	exec := NewExecutor(r.cfg.Exec)
	pm := NewPositionManager()
	acc := analytics.NewAccumulator(analytics.Config{Annualization: r.cfg.Annualization})

	var (
		index  uint64
		prevTs uint64
		hasTs  bool
	)
	for {
		if err := ctx.Err(); err != nil {
			r.log.Info("replay cancelled", zap.String("run", r.cfg.Name), zap.Uint64("events", index))
			break
		}
		if r.cfg.MaxEvents > 0 && index >= r.cfg.MaxEvents {
			break
		}

		snap, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("event %d: %w", index, errors.Join(ErrMalformedSnapshot, err))
		}
		if hasTs && snap.TimestampUs < prevTs {
			return nil, fmt.Errorf("event %d: timestamp %d before %d: %w",
				index, snap.TimestampUs, prevTs, ErrMalformedSnapshot)
		}
		prevTs = snap.TimestampUs
		hasTs = true

		st, err := recon.Update(snap)
		if err != nil {
			r.events.Append(Event{TsUs: snap.TimestampUs, Index: index, Type: EventCrossedBook, Detail: err.Error()})
			r.log.Warn("snapshot rejected, reusing last state",
				zap.String("run", r.cfg.Name), zap.Uint64("event", index), zap.Error(err))
			if !recon.HasValid() {
				// Nothing to trade against yet.
				index++
				continue
			}
		}

		pos := pm.MarkToMarket(st.Mid)
		intents := strat.OnEvent(&st, pos)
		for _, intent := range intents {
			trade, execErr := exec.Execute(intent, &st, pm.Position())
			switch {
			case execErr == nil:
				pm.Apply(trade)
				acc.OnTrade(trade.RealizedPnLDelta)
				r.events.Append(Event{TsUs: st.TimestampUs, Index: index, Type: EventFill, Detail: intent.Kind.String()})
			case errors.Is(execErr, ErrInsufficientDepth) && trade.Quantity > 0:
				pm.Apply(trade)
				acc.OnTrade(trade.RealizedPnLDelta)
				r.events.Append(Event{TsUs: st.TimestampUs, Index: index, Type: EventPartialFill, Detail: execErr.Error()})
				r.log.Warn("partial fill", zap.String("run", r.cfg.Name), zap.Uint64("event", index), zap.Error(execErr))
			case errors.Is(execErr, ErrRiskLimitBreach):
				r.events.Append(Event{TsUs: st.TimestampUs, Index: index, Type: EventRiskReject, Detail: execErr.Error()})
				r.log.Warn("intent rejected", zap.String("run", r.cfg.Name), zap.Uint64("event", index), zap.Error(execErr))
			case errors.Is(execErr, ErrUnmarketable):
				// Resting quotes that never cross are simply not filled.
			case errors.Is(execErr, ErrInsufficientDepth):
				r.log.Warn("no depth for market intent", zap.String("run", r.cfg.Name), zap.Uint64("event", index))
			default:
				return nil, fmt.Errorf("event %d: execute: %w", index, execErr)
			}
		}

		pos = pm.MarkToMarket(st.Mid)
		acc.OnEquity(st.TimestampUs, pos.Equity())
		index++
	}

	elapsed := time.Since(started)
	eps := 0.0
	if elapsed > 0 {
		eps = float64(index) / elapsed.Seconds()
	}
	res := &RunResult{
		JobID:             uuid.NewString(),
		Name:              r.cfg.Name,
		Report:            acc.Report(),
		Position:          pm.MarkToMarket(recon.LastState().Mid),
		Trades:            pm.Trades(),
		Strategy:          strat.Stats(),
		EventsProcessed:   index,
		SnapshotsRejected: recon.Rejected(),
		RiskRejects:       exec.RejectedRisk(),
		PartialFills:      exec.PartialFills(),
		Timing: RunTiming{
			StartedAt:       started,
			Duration:        elapsed,
			EventsPerSecond: eps,
		},
	}
	r.log.Info("replay finished",
		zap.String("run", r.cfg.Name),
		zap.String("job_id", res.JobID),
		zap.Uint64("events", index),
		zap.Uint64("trades", res.Report.TradeCount),
		zap.Float64("total_pnl", res.Report.TotalPnL),
		zap.Duration("elapsed", elapsed))
	return res, nil
}
