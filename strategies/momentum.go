package strategies

import (
	"github.com/iminoaru/zaphft/services/book"
	"github.com/iminoaru/zaphft/services/engine"
)

// MomentumConfig tunes the drift-following strategy.
type MomentumConfig struct {
	Lookback       int     // mids between the compared samples
	Threshold      float64 // absolute price move that triggers an entry
	TradeSize      float64
	CooldownEvents int // events to wait after an entry before the next
}

func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		Lookback:       100,
		Threshold:      5.0,
		TradeSize:      0.1,
		CooldownEvents: 50,
	}
}

// Momentum enters with a market order in the direction of the mid-price move
// over the lookback window. A cooldown after each entry keeps noisy drift
// from producing oscillating entries.
type Momentum struct {
	cfg MomentumConfig

	mids []float64
	head int
	seen int

	cooldownLeft int

	updates uint64
	intents uint64
}

func NewMomentum(cfg MomentumConfig) *Momentum {
	if cfg.Lookback < 1 {
		cfg.Lookback = 1
	}
	return &Momentum{cfg: cfg, mids: make([]float64, cfg.Lookback+1)}
}

func (s *Momentum) Name() string { return "momentum" }

func (s *Momentum) Stats() engine.StrategyStats {
	return engine.StrategyStats{
		Name:             s.Name(),
		UpdatesProcessed: s.updates,
		IntentsEmitted:   s.intents,
	}
}

// OnEvent records the current mid and emits at most one market intent when
// the move over the lookback window exceeds the threshold and no cooldown is
// pending.
func (s *Momentum) OnEvent(st *book.State, pos engine.Position) []engine.OrderIntent {
	s.updates++
	momentum, ok := s.pushMid(st.Mid)

	if s.cooldownLeft > 0 {
		s.cooldownLeft--
		return nil
	}
	if !ok {
		return nil
	}

	var side book.Side
	switch {
	case momentum > s.cfg.Threshold:
		side = book.Bid
	case momentum < -s.cfg.Threshold:
		side = book.Ask
	default:
		return nil
	}

	s.cooldownLeft = s.cfg.CooldownEvents
	s.intents++
	return []engine.OrderIntent{{Side: side, Quantity: s.cfg.TradeSize, Kind: engine.OrderMarket}}
}

// pushMid stores the mid and returns current minus the mid Lookback events
// ago. ok is false until the window has filled.
func (s *Momentum) pushMid(mid float64) (float64, bool) {
	s.mids[s.head] = mid
	s.head = (s.head + 1) % len(s.mids)
	if s.seen < len(s.mids) {
		s.seen++
		if s.seen < len(s.mids) {
			return 0, false
		}
	}
	return mid - s.mids[s.head], true
}
