// Package proto defines the replay service wire types and the gRPC service
// surface. Generated bindings are intentionally replaced by plain Go types;
// the schema is small enough to keep by hand.
package proto

import "context"

type StrategyKind int32

const (
	StrategyKind_MARKET_MAKER StrategyKind = 0
	StrategyKind_MOMENTUM     StrategyKind = 1
)

type ReplayRequest struct {
	JobName        string            `json:"job_name"`
	Source         string            `json:"source"` // csv path or table reference
	Strategy       StrategyKind      `json:"strategy"`
	MaxEvents      uint64            `json:"max_events"`
	MaxPosition    float64           `json:"max_position"`
	MakerFeeRate   float64           `json:"maker_fee_rate"` // 0 falls back to the server default
	TakerFeeRate   float64           `json:"taker_fee_rate"`
	Annualization  float64           `json:"annualization"`
	StrategyParams map[string]string `json:"strategy_params"`
}

type TradeRecord struct {
	TimestampUs      uint64  `json:"timestamp_us"`
	Side             string  `json:"side"`
	Price            float64 `json:"price"`
	Quantity         float64 `json:"quantity"`
	Fee              float64 `json:"fee"`
	RealizedPnlDelta float64 `json:"realized_pnl_delta"`
}

type EquitySample struct {
	TimestampUs uint64  `json:"timestamp_us"`
	Equity      float64 `json:"equity"`
}

type ReplayResponse struct {
	JobId           string          `json:"job_id"`
	EventsProcessed uint64          `json:"events_processed"`
	TotalPnl        float64         `json:"total_pnl"`
	SharpeRatio     float64         `json:"sharpe_ratio"`
	MaxDrawdown     float64         `json:"max_drawdown"`
	WinRate         float64         `json:"win_rate"`
	TradeCount      uint64          `json:"trade_count"`
	AvgTradePnl     float64         `json:"avg_trade_pnl"`
	Trades          []*TradeRecord  `json:"trades"`
	EquityCurve     []*EquitySample `json:"equity_curve"`
}

// gRPC server interface stub

type UnimplementedReplayServiceServer struct{}

func RegisterReplayServiceServer(_ any, _ ReplayServiceServer) {}

type ReplayServiceServer interface {
	ExecuteReplay(context.Context, *ReplayRequest) (*ReplayResponse, error)
}
