package engine

import "github.com/iminoaru/zaphft/services/book"

// Strategy is the decision engine driven once per replay event. It reads the
// derived book state and the current position snapshot only; it never talks
// to the position manager or the raw book.
type Strategy interface {
	// OnEvent returns zero or more order intents for this event.
	OnEvent(st *book.State, pos Position) []OrderIntent

	Name() string

	Stats() StrategyStats
}

// StrategyStats are the per-run counters a strategy keeps about itself.
type StrategyStats struct {
	Name             string `json:"name"`
	UpdatesProcessed uint64 `json:"updates_processed"`
	IntentsEmitted   uint64 `json:"intents_emitted"`
	QuotesPlaced     uint64 `json:"quotes_placed"`
}
