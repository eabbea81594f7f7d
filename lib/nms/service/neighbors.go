package service

import "sync"

type neighborEntry struct {
	length    uint8
	refreshed bool
}

// neighborTable records the outgoing queue lengths neighbors advertise,
// per incoming interface.
type neighborTable struct {
	mu      sync.Mutex
	byIface map[string]map[uint32]*neighborEntry
}

func newNeighborTable() *neighborTable {
	return &neighborTable{byIface: make(map[string]map[uint32]*neighborEntry)}
}

func (t *neighborTable) update(ifaceName string, addr uint32, length uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.byIface[ifaceName]
	if !ok {
		m = make(map[uint32]*neighborEntry)
		t.byIface[ifaceName] = m
	}
	e, ok := m[addr]
	if !ok {
		e = &neighborEntry{}
		m[addr] = e
	}
	e.length = length
	e.refreshed = true
}

func (t *neighborTable) get(ifaceName string, addr uint32) uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.byIface[ifaceName][addr]; ok {
		return e.length
	}
	return 0
}

// decay zeroes every entry not refreshed since the previous sweep.
func (t *neighborTable) decay() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range t.byIface {
		for _, e := range m {
			if !e.refreshed {
				e.length = 0
			}
			e.refreshed = false
		}
	}
}
