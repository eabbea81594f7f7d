package service

import (
	"cmp"
	"slices"

	"github.com/go-i2p/go-nms/lib/nms/sack"
)

// peerState tracks one remote source: its current session, per
// destination group windows of recently seen manycast ids, and message
// counters. A session change resets all of it.
type peerState struct {
	sessionID uint16
	known     bool
	windows   map[uint32]*sack.Window
	unicast   uint64
	manycast  uint64
}

func newPeerState() *peerState {
	return &peerState{windows: make(map[uint32]*sack.Window)}
}

// observeSession records session and reports whether it replaced an
// earlier one.
func (p *peerState) observeSession(session uint16) bool {
	if p.known && p.sessionID == session {
		return false
	}
	changed := p.known
	p.known = true
	p.sessionID = session
	clear(p.windows)
	p.unicast = 0
	p.manycast = 0
	return changed
}

func (p *peerState) observeUnicast(session uint16) {
	p.observeSession(session)
	p.unicast++
}

// observeManycast reports whether id is new for the group dest.
func (p *peerState) observeManycast(session uint16, dest uint32, id uint16) bool {
	p.observeSession(session)
	w, ok := p.windows[dest]
	if !ok {
		w = sack.NewWindow(0)
		p.windows[dest] = w
	}
	if !w.Observe(id) {
		return false
	}
	p.manycast++
	return true
}

// peer returns the state for src. The caller holds arrivedMu.
func (s *Service) peer(src uint32) *peerState {
	p, ok := s.peers[src]
	if !ok {
		p = newPeerState()
		s.peers[src] = p
	}
	return p
}

// PeerStats counts what one remote source sent during its current session.
// Unicast counts every unicast message heard, duplicates included; Manycast
// counts only new manycast messages.
type PeerStats struct {
	Addr      uint32
	SessionID uint16
	Unicast   uint64
	Manycast  uint64
}

func (p *peerState) stats(addr uint32) PeerStats {
	return PeerStats{Addr: addr, SessionID: p.sessionID, Unicast: p.unicast, Manycast: p.manycast}
}

// PeerStats returns the counters for src, or false if src was never heard.
func (s *Service) PeerStats(src uint32) (PeerStats, bool) {
	s.arrivedMu.Lock()
	defer s.arrivedMu.Unlock()
	p, ok := s.peers[src]
	if !ok {
		return PeerStats{}, false
	}
	return p.stats(src), true
}

// Peers returns the counters of every source heard, in ascending address
// order.
func (s *Service) Peers() []PeerStats {
	s.arrivedMu.Lock()
	defer s.arrivedMu.Unlock()
	out := make([]PeerStats, 0, len(s.peers))
	for addr, p := range s.peers {
		out = append(out, p.stats(addr))
	}
	slices.SortFunc(out, func(a, b PeerStats) int { return cmp.Compare(a.Addr, b.Addr) })
	return out
}
