package service

import (
	"container/list"
	"time"

	"github.com/go-i2p/go-nms/lib/nms/iface"
	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/go-nms/lib/nms/sack"
	"github.com/go-i2p/logger"
)

// maxBackoffSteps caps the timeout multiplier at 1+maxBackoffSteps.
const maxBackoffSteps = 5

type unackedEntry struct {
	msg      *message.NetworkMessage
	ifaces   []iface.Interface
	count    int
	lastSent time.Time
}

// unackedQueue holds the reliable messages sent to one destination in
// last-send order.
type unackedQueue struct {
	order *list.List
	byID  map[uint16]*list.Element
}

func newUnackedQueue() *unackedQueue {
	return &unackedQueue{order: list.New(), byID: make(map[uint16]*list.Element)}
}

func (q *unackedQueue) remove(e *list.Element) {
	entry := e.Value.(*unackedEntry)
	delete(q.byID, entry.msg.MsgID)
	q.order.Remove(e)
}

// timeout is the retransmission timeout for an entry resent count times.
func timeout(base time.Duration, count int) time.Duration {
	return base * time.Duration(1+min(count, maxBackoffSteps))
}

// recordUnacked stores msg for retransmission. Recording an id that is
// already pending replaces the entry and counts as a retransmission.
func (s *Service) recordUnacked(msg *message.NetworkMessage, out []iface.Interface) {
	now := s.clock.Now()
	s.unackedMu.Lock()
	defer s.unackedMu.Unlock()

	q, ok := s.unacked[msg.DestAddr]
	if !ok {
		q = newUnackedQueue()
		s.unacked[msg.DestAddr] = q
	}
	if e, ok := q.byID[msg.MsgID]; ok {
		entry := e.Value.(*unackedEntry)
		entry.msg = msg
		entry.ifaces = out
		entry.count++
		entry.lastSent = now
		q.order.MoveToBack(e)
		return
	}
	q.byID[msg.MsgID] = q.order.PushBack(&unackedEntry{
		msg:      msg,
		ifaces:   out,
		lastSent: now,
	})
}

// UnackedCount returns the number of reliable messages to dest that are
// waiting for an acknowledgment.
func (s *Service) UnackedCount(dest uint32) int {
	s.unackedMu.Lock()
	defer s.unackedMu.Unlock()
	if q, ok := s.unacked[dest]; ok {
		return q.order.Len()
	}
	return 0
}

func (s *Service) atCeiling(entry *unackedEntry) bool {
	return s.cfg.MaxRetransmissions > 0 && entry.count >= s.cfg.MaxRetransmissions
}

// applySAck removes every entry to dest covered by ack or out of
// retransmissions. It returns the number of entries removed.
func (s *Service) applySAck(dest uint32, ack sack.SAck) int {
	s.unackedMu.Lock()
	defer s.unackedMu.Unlock()

	q, ok := s.unacked[dest]
	if !ok {
		return 0
	}
	removed := 0
	for e := q.order.Front(); e != nil; {
		next := e.Next()
		entry := e.Value.(*unackedEntry)
		switch {
		case ack.CoveredByCumulative(entry.msg.MsgID), ack.CoveredByRange(entry.msg.MsgID):
			q.remove(e)
			removed++
		case s.atCeiling(entry):
			q.remove(e)
			removed++
			s.stats.abandoned.Add(1)
		}
		e = next
	}
	if q.order.Len() == 0 {
		delete(s.unacked, dest)
	}
	return removed
}

type resend struct {
	msg    *message.NetworkMessage
	ifaces []iface.Interface
	count  int
}

// resendUnacknowledged resends every overdue reliable message as an
// expedited send. Each destination's scan stops at the first entry that is
// not yet due.
func (s *Service) resendUnacknowledged() int {
	now := s.clock.Now()
	base := s.RetransmissionTimeout()

	var due []resend
	s.unackedMu.Lock()
	for dest, q := range s.unacked {
		var overdue []*list.Element
		for e := q.order.Front(); e != nil; {
			next := e.Next()
			entry := e.Value.(*unackedEntry)
			if s.atCeiling(entry) {
				log.WithFields(logger.Fields{
					"at":     "(Service) resendUnacknowledged",
					"dest":   message.AddrString(dest),
					"msg_id": entry.msg.MsgID,
					"count":  entry.count,
				}).Debug("retransmissions exhausted, abandoning message")
				q.remove(e)
				s.stats.abandoned.Add(1)
				e = next
				continue
			}
			if now.Sub(entry.lastSent) < timeout(base, entry.count) {
				break
			}
			overdue = append(overdue, e)
			e = next
		}
		for _, e := range overdue {
			entry := e.Value.(*unackedEntry)
			entry.count++
			entry.lastSent = now
			q.order.MoveToBack(e)
			due = append(due, resend{msg: entry.msg.Clone(), ifaces: entry.ifaces, count: entry.count})
		}
		if q.order.Len() == 0 {
			delete(s.unacked, dest)
		}
	}
	s.unackedMu.Unlock()

	for _, r := range due {
		if n, err := s.sendOn(r.msg, r.ifaces, true); n == 0 {
			log.WithError(err).WithFields(logger.Fields{
				"at":     "(Service) resendUnacknowledged",
				"dest":   message.AddrString(r.msg.DestAddr),
				"msg_id": r.msg.MsgID,
			}).Debug("retransmission failed")
		}
		s.stats.retransmitted.Add(1)
		s.trace(logger.Fields{
			"at":     "(Service) resendUnacknowledged",
			"dest":   message.AddrString(r.msg.DestAddr),
			"msg_id": r.msg.MsgID,
			"count":  r.count,
		}, "message retransmitted")
	}
	return len(due)
}
