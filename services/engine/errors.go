package engine

import "errors"

// Error taxonomy for a replay run. Only ErrMalformedSnapshot aborts a run;
// everything else is handled at the event where it occurs so the replay can
// still finish and produce a report.
var (
	// ErrMalformedSnapshot: unparseable input or an out-of-order timestamp.
	// Fatal, surfaced with the offending event index.
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrRiskLimitBreach: accepting the full intent would push the position
	// beyond MaxPosition. The intent is rejected wholesale; no clipping.
	ErrRiskLimitBreach = errors.New("risk limit breach")

	// ErrInsufficientDepth: a market intent exceeded visible depth. The
	// available quantity fills, the remainder is cancelled.
	ErrInsufficientDepth = errors.New("insufficient depth")

	// ErrUnmarketable: a limit intent whose price does not cross the
	// opposing best. Dropped without a fill; resting orders are not tracked
	// beyond the event that produced them.
	ErrUnmarketable = errors.New("limit price does not cross")
)
