package service

import "sync/atomic"

// Stats is a snapshot of the service counters.
type Stats struct {
	Sent           uint64
	Retransmitted  uint64
	Received       uint64
	Delivered      uint64
	Duplicates     uint64
	SAcksSent      uint64
	SAcksReceived  uint64
	IntegrityDrops uint64
	Rebroadcast    uint64
	Abandoned      uint64
}

type counters struct {
	sent           atomic.Uint64
	retransmitted  atomic.Uint64
	received       atomic.Uint64
	delivered      atomic.Uint64
	duplicates     atomic.Uint64
	sacksSent      atomic.Uint64
	sacksReceived  atomic.Uint64
	integrityDrops atomic.Uint64
	rebroadcast    atomic.Uint64
	abandoned      atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Sent:           c.sent.Load(),
		Retransmitted:  c.retransmitted.Load(),
		Received:       c.received.Load(),
		Delivered:      c.delivered.Load(),
		Duplicates:     c.duplicates.Load(),
		SAcksSent:      c.sacksSent.Load(),
		SAcksReceived:  c.sacksReceived.Load(),
		IntegrityDrops: c.integrityDrops.Load(),
		Rebroadcast:    c.rebroadcast.Load(),
		Abandoned:      c.abandoned.Load(),
	}
}
