package sack

import "github.com/go-i2p/go-nms/lib/util/seqarith"

// DefaultWindowSize is the number of recent ids a Window remembers.
const DefaultWindowSize = 256

// Window remembers the most recent message ids of a source for traffic that
// is never acknowledged. An id is a duplicate if it is still remembered or
// if it is older than the window relative to the highest id seen.
type Window struct {
	size    int
	ring    []uint16
	next    int
	set     map[uint16]struct{}
	highest uint16
	active  bool
}

// NewWindow creates a Window. size <= 0 selects DefaultWindowSize.
func NewWindow(size int) *Window {
	if size <= 0 || size > 1<<15 {
		size = DefaultWindowSize
	}
	return &Window{
		size: size,
		ring: make([]uint16, 0, size),
		set:  make(map[uint16]struct{}, size),
	}
}

// Observe records id and reports whether it is new.
func (w *Window) Observe(id uint16) bool {
	if w.active {
		if _, ok := w.set[id]; ok {
			return false
		}
		if seqarith.LessThan(id, w.highest) && int(seqarith.Delta(id, w.highest)) >= w.size {
			return false
		}
	}
	w.add(id)
	if !w.active || seqarith.GreaterThan(id, w.highest) {
		w.highest = id
	}
	w.active = true
	return true
}

// Contains reports whether id is currently remembered.
func (w *Window) Contains(id uint16) bool {
	_, ok := w.set[id]
	return ok
}

// Reset forgets every id.
func (w *Window) Reset() {
	w.ring = w.ring[:0]
	w.next = 0
	clear(w.set)
	w.active = false
}

// Len returns the number of remembered ids.
func (w *Window) Len() int {
	return len(w.set)
}

func (w *Window) add(id uint16) {
	if len(w.ring) < w.size {
		w.ring = append(w.ring, id)
	} else {
		delete(w.set, w.ring[w.next])
		w.ring[w.next] = id
		w.next = (w.next + 1) % w.size
	}
	w.set[id] = struct{}{}
}
