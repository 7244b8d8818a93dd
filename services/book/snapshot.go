package book

// Depth is the number of visible price levels per side in an L2 snapshot.
const Depth = 10

// Side distinguishes the two halves of the book.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// Level is a single aggregated price level. A zero-quantity level stands for
// a missing level; trailing levels in a snapshot may be zero-filled.
type Level struct {
	Price    float64
	Quantity float64
}

// Notional is price * quantity at this level.
func (l Level) Notional() float64 { return l.Price * l.Quantity }

// Snapshot is one raw L2 record: bids descending by price, asks ascending.
// It is produced once per event by a SnapshotSource and consumed by the
// Reconstructor; nothing retains it afterwards.
type Snapshot struct {
	TimestampUs uint64
	Bids        [Depth]Level
	Asks        [Depth]Level
}

func (s *Snapshot) BestBid() float64 { return s.Bids[0].Price }
func (s *Snapshot) BestAsk() float64 { return s.Asks[0].Price }

func (s *Snapshot) Spread() float64 { return s.BestAsk() - s.BestBid() }

func (s *Snapshot) Mid() float64 { return (s.BestBid() + s.BestAsk()) / 2 }

// Imbalance is (bidVol-askVol)/(bidVol+askVol) over the top k levels,
// in [-1, 1]. Returns 0 for an empty book.
func (s *Snapshot) Imbalance(k int) float64 {
	if k <= 0 || k > Depth {
		k = Depth
	}
	var bidQty, askQty float64
	for i := 0; i < k; i++ {
		bidQty += s.Bids[i].Quantity
		askQty += s.Asks[i].Quantity
	}
	total := bidQty + askQty
	if total == 0 {
		return 0
	}
	return (bidQty - askQty) / total
}

// Validate checks the structural invariants of a snapshot: positive
// quantities and strict price ordering among non-empty levels, and an
// uncrossed top of book.
func (s *Snapshot) Validate() error {
	if s.BestBid() >= s.BestAsk() {
		return ErrCrossedBook
	}
	for i := 0; i < Depth; i++ {
		if s.Bids[i].Quantity < 0 || s.Asks[i].Quantity < 0 {
			return ErrInvalidBook
		}
	}
	for i := 0; i < Depth-1; i++ {
		// Zero-quantity levels mark the end of visible depth on that side.
		if s.Bids[i+1].Quantity > 0 && s.Bids[i].Price <= s.Bids[i+1].Price {
			return ErrInvalidBook
		}
		if s.Asks[i+1].Quantity > 0 && s.Asks[i].Price >= s.Asks[i+1].Price {
			return ErrInvalidBook
		}
	}
	return nil
}
