// Package marketdata provides snapshot sources for replays: CSV files (the
// exchange export format), ClickHouse tables, synthetic generators and
// in-memory slices.
package marketdata

import (
	"io"

	"github.com/iminoaru/zaphft/services/book"
)

// SliceSource serves snapshots from memory. Used by tests and by the
// generator when no persistence is wanted.
type SliceSource struct {
	snaps []book.Snapshot
	next  int
}

func NewSliceSource(snaps []book.Snapshot) *SliceSource {
	return &SliceSource{snaps: snaps}
}

func (s *SliceSource) Next() (*book.Snapshot, error) {
	if s.next >= len(s.snaps) {
		return nil, io.EOF
	}
	snap := &s.snaps[s.next]
	s.next++
	return snap, nil
}

// Len is the total number of snapshots served.
func (s *SliceSource) Len() int { return len(s.snaps) }

// Reset rewinds the source so another run can replay the same data.
func (s *SliceSource) Reset() { s.next = 0 }
