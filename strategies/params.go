package strategies

import (
	"fmt"
	"strconv"

	"github.com/iminoaru/zaphft/services/engine"
)

// Build constructs a strategy by name with overrides applied on top of the
// default config. Unknown parameter keys are rejected so typos in job
// requests fail loudly.
func Build(name string, params map[string]string) (engine.Strategy, error) {
	switch name {
	case "market_maker", "mm":
		cfg := DefaultMarketMakerConfig()
		for k, v := range params {
			var err error
			switch k {
			case "spread_ticks":
				cfg.SpreadTicks, err = parseF(v)
			case "quote_size":
				cfg.QuoteSize, err = parseF(v)
			case "max_position":
				cfg.MaxPosition, err = parseF(v)
			case "tick_size":
				cfg.TickSize, err = parseF(v)
			case "inventory_threshold":
				cfg.InventoryThreshold, err = parseF(v)
			case "inventory_skew_ticks":
				cfg.InventorySkewTicks, err = parseF(v)
			case "trend_filter_ticks":
				cfg.TrendFilterTicks, err = parseF(v)
			case "hedge_inventory_ratio":
				cfg.HedgeInventoryRatio, err = parseF(v)
			case "trend_window":
				cfg.TrendWindow, err = strconv.Atoi(v)
			default:
				return nil, fmt.Errorf("market_maker: unknown parameter %q", k)
			}
			if err != nil {
				return nil, fmt.Errorf("market_maker: parameter %q: %w", k, err)
			}
		}
		return NewMarketMaker(cfg), nil

	case "momentum", "mom":
		cfg := DefaultMomentumConfig()
		for k, v := range params {
			var err error
			switch k {
			case "lookback":
				cfg.Lookback, err = strconv.Atoi(v)
			case "threshold":
				cfg.Threshold, err = parseF(v)
			case "trade_size":
				cfg.TradeSize, err = parseF(v)
			case "cooldown_events":
				cfg.CooldownEvents, err = strconv.Atoi(v)
			default:
				return nil, fmt.Errorf("momentum: unknown parameter %q", k)
			}
			if err != nil {
				return nil, fmt.Errorf("momentum: parameter %q: %w", k, err)
			}
		}
		return NewMomentum(cfg), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

func parseF(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
