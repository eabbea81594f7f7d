package sack

import (
	"slices"

	"github.com/go-i2p/go-nms/lib/util/seqarith"
)

// DefaultMaxTrackedIDs bounds how far ahead of the cumulative TSN a message
// id may be before it is rejected.
const DefaultMaxTrackedIDs = 4096

// Tracker records which message ids of one source session have arrived.
// It is not safe for concurrent use; the owning queue serializes access.
type Tracker struct {
	initialized bool
	cumulative  uint16
	// received holds ids strictly ahead of cumulative.
	received   map[uint16]struct{}
	maxTracked uint16
}

// NewTracker creates an empty tracker. maxTracked <= 0 selects
// DefaultMaxTrackedIDs.
func NewTracker(maxTracked int) *Tracker {
	if maxTracked <= 0 || maxTracked > 1<<15-1 {
		maxTracked = DefaultMaxTrackedIDs
	}
	return &Tracker{
		received:   make(map[uint16]struct{}),
		maxTracked: uint16(maxTracked),
	}
}

// Reset makes id the cumulative TSN and forgets everything else.
func (t *Tracker) Reset(id uint16) {
	t.initialized = true
	t.cumulative = id
	clear(t.received)
}

// Begin starts a session whose first arrival is id. Senders number each
// session from zero, so an id within the tracked window of zero leaves the
// ids before it unacknowledged with the cumulative TSN just below zero.
// Any other id becomes the cumulative TSN itself.
func (t *Tracker) Begin(id uint16) {
	start := seqarith.Prev(uint16(0))
	if id == start || id-start > t.maxTracked {
		t.Reset(id)
		return
	}
	t.Reset(start)
	t.record(id)
}

// Initialized reports whether any id has been recorded since creation.
func (t *Tracker) Initialized() bool {
	return t.initialized
}

// Cumulative returns the cumulative TSN.
func (t *Tracker) Cumulative() uint16 {
	return t.cumulative
}

// Mark records id. It returns true when id had not been seen before. The
// first id ever marked starts the session as Begin does.
func (t *Tracker) Mark(id uint16) (bool, error) {
	if !t.initialized {
		t.Begin(id)
		return true, nil
	}
	if seqarith.LessThanOrEqual(id, t.cumulative) {
		return false, nil
	}
	if !seqarith.GreaterThan(id, t.cumulative) || id-t.cumulative > t.maxTracked {
		return false, ErrOutOfWindow
	}
	if _, ok := t.received[id]; ok {
		return false, nil
	}
	t.record(id)
	return true, nil
}

// record adds an id ahead of cumulative and advances over the run it closes.
func (t *Tracker) record(id uint16) {
	t.received[id] = struct{}{}
	for {
		next := seqarith.Next(t.cumulative)
		if _, ok := t.received[next]; !ok {
			break
		}
		delete(t.received, next)
		t.cumulative = next
	}
}

// Received reports whether id has been recorded.
func (t *Tracker) Received(id uint16) bool {
	if !t.initialized {
		return false
	}
	if seqarith.LessThanOrEqual(id, t.cumulative) {
		return true
	}
	_, ok := t.received[id]
	return ok
}

// HasGaps reports whether ids beyond a missing one have arrived.
func (t *Tracker) HasGaps() bool {
	return len(t.received) > 0
}

// SAck snapshots the tracker as a cumulative TSN plus ascending ranges.
func (t *Tracker) SAck() SAck {
	s := SAck{Cumulative: t.cumulative}
	if len(t.received) == 0 {
		return s
	}

	ids := make([]uint16, 0, len(t.received))
	for id := range t.received {
		ids = append(ids, id)
	}
	base := t.cumulative
	slices.SortFunc(ids, func(a, b uint16) int {
		return int(a-base) - int(b-base)
	})

	cur := Range{Start: ids[0], End: ids[0]}
	for _, id := range ids[1:] {
		if id == seqarith.Next(cur.End) {
			cur.End = id
			continue
		}
		s.Ranges = append(s.Ranges, cur)
		cur = Range{Start: id, End: id}
	}
	s.Ranges = append(s.Ranges, cur)
	return s
}
