package book

import "errors"

var (
	// ErrCrossedBook marks a snapshot whose best bid meets or exceeds its
	// best ask. Recoverable: the reconstructor keeps serving the last valid
	// state.
	ErrCrossedBook = errors.New("crossed book: best bid >= best ask")

	// ErrInvalidBook marks negative quantities or disordered levels within
	// one side. Handled with the same last-valid-state policy.
	ErrInvalidBook = errors.New("invalid book levels")
)

// State is the validated, derived view of the book for one replay event.
// It is recomputed per event and never mutated; the level arrays are copies
// owned by the state, so the execution simulator can walk depth without
// touching the source snapshot.
type State struct {
	TimestampUs uint64
	BestBid     float64
	BestAsk     float64
	Mid         float64
	Spread      float64
	Imbalance   float64
	Bids        [Depth]Level
	Asks        [Depth]Level
}

// Levels returns the requested side of the book.
func (st *State) Levels(side Side) *[Depth]Level {
	if side == Bid {
		return &st.Bids
	}
	return &st.Asks
}

// LiquidityForNotional walks one side until the notional budget is spent.
// Returns the total quantity obtainable, its volume-weighted price, and the
// number of levels consumed.
func (st *State) LiquidityForNotional(side Side, notional float64) (qty, avgPrice float64, levels int) {
	var spent float64
	for _, lv := range st.Levels(side) {
		if spent >= notional {
			break
		}
		if lv.Quantity <= 0 || lv.Price <= 0 {
			continue
		}
		levelNotional := lv.Notional()
		if spent+levelNotional <= notional {
			qty += lv.Quantity
			spent += levelNotional
			levels++
			continue
		}
		remaining := notional - spent
		qty += remaining / lv.Price
		spent = notional
		levels++
		break
	}
	if qty > 0 {
		avgPrice = spent / qty
	}
	return qty, avgPrice, levels
}

// SlippageForQuantity walks one side until qty is filled and reports the
// volume-weighted price and the slippage versus the side's best price in
// basis points. ok is false when visible depth cannot cover the quantity.
func (st *State) SlippageForQuantity(side Side, quantity float64) (avgPrice, slippageBps float64, levels int, ok bool) {
	lvls := st.Levels(side)
	best := lvls[0].Price
	if best <= 0 || quantity <= 0 {
		return 0, 0, 0, false
	}
	remaining := quantity
	var notional float64
	for _, lv := range lvls {
		if remaining <= 0 {
			break
		}
		if lv.Quantity <= 0 {
			continue
		}
		fill := min(remaining, lv.Quantity)
		notional += fill * lv.Price
		remaining -= fill
		levels++
	}
	if remaining > 0 {
		return 0, 0, levels, false
	}
	avgPrice = notional / quantity
	slippageBps = abs((avgPrice - best) / best * 10_000)
	return avgPrice, slippageBps, levels, true
}

// Reconstructor validates raw snapshots and derives per-event State. It holds
// no history beyond the single last valid state, keeping per-event cost O(1)
// regardless of run length.
type Reconstructor struct {
	last           State
	hasValid       bool
	imbalanceDepth int
	updates        uint64
	rejected       uint64
}

// NewReconstructor builds a reconstructor computing imbalance over the top
// imbalanceDepth levels (clamped to [1, Depth]; 0 means full depth).
func NewReconstructor(imbalanceDepth int) *Reconstructor {
	if imbalanceDepth <= 0 || imbalanceDepth > Depth {
		imbalanceDepth = Depth
	}
	return &Reconstructor{imbalanceDepth: imbalanceDepth}
}

// Update derives the book state for one snapshot. On a crossed or otherwise
// invalid book it returns the previously valid state unchanged together with
// the validation error; the caller logs a warning and continues.
func (r *Reconstructor) Update(snap *Snapshot) (State, error) {
	r.updates++
	if err := snap.Validate(); err != nil {
		r.rejected++
		return r.last, err
	}
	st := State{
		TimestampUs: snap.TimestampUs,
		BestBid:     snap.BestBid(),
		BestAsk:     snap.BestAsk(),
		Mid:         snap.Mid(),
		Spread:      snap.Spread(),
		Imbalance:   snap.Imbalance(r.imbalanceDepth),
		Bids:        snap.Bids,
		Asks:        snap.Asks,
	}
	r.last = st
	r.hasValid = true
	return st, nil
}

// HasValid reports whether at least one snapshot has passed validation.
func (r *Reconstructor) HasValid() bool { return r.hasValid }

// LastState returns the most recent valid state, or the zero State when no
// snapshot has validated yet.
func (r *Reconstructor) LastState() State { return r.last }

// Updates is the number of snapshots seen; Rejected the number that failed
// validation.
func (r *Reconstructor) Updates() uint64  { return r.updates }
func (r *Reconstructor) Rejected() uint64 { return r.rejected }

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
