package service

import (
	"github.com/go-i2p/go-nms/lib/nms/iface"
	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/go-nms/lib/nms/sack"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// ackArrived applies a SAck received from a peer to our unacked table.
// SAcks stamped with another session id acknowledge an earlier epoch and
// are ignored.
func (s *Service) ackArrived(msg *message.NetworkMessage) error {
	s.stats.sacksReceived.Add(1)
	if msg.SessionID != s.sessionID {
		log.WithFields(logger.Fields{
			"at":      "(Service) ackArrived",
			"src":     message.AddrString(msg.SourceAddr),
			"session": msg.SessionID,
		}).Debug("ignoring SAck for another session")
		return nil
	}
	ack, err := sack.Parse(msg.Data)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":    "(Service) ackArrived",
			"src":   message.AddrString(msg.SourceAddr),
			"bytes": len(msg.Data),
		}).Warn("dropping malformed SAck")
		return oops.Wrapf(ErrMalformedSAck, "%v", err)
	}

	removed := s.applySAck(msg.SourceAddr, ack)
	s.trace(logger.Fields{
		"at":         "(Service) ackArrived",
		"src":        message.AddrString(msg.SourceAddr),
		"cumulative": ack.Cumulative,
		"ranges":     len(ack.Ranges),
		"removed":    removed,
	}, "SAck applied")
	return nil
}

// acknowledge answers a reliable receipt on the interface it came in on,
// unless a SAck already went to peer within the aggregation period.
func (s *Service) acknowledge(peer uint32, in iface.Interface) {
	if agg := s.cfg.MaxAggregationPeriod; agg > 0 {
		s.sackMu.Lock()
		last, ok := s.lastSAck[peer]
		s.sackMu.Unlock()
		if ok && s.clock.Since(last) < agg {
			return
		}
	}
	if in == nil {
		in = s.primary
	}
	s.sendSAck(peer, in)
}

// sendSAck sends peer our acknowledgment state for it on out. It reports
// whether a SAck went out.
func (s *Service) sendSAck(peer uint32, out iface.Interface) bool {
	session, ok := s.reasm.SessionID(peer)
	if !ok {
		return false
	}
	budget := s.payloadBudget([]iface.Interface{out})
	payload := s.reasm.GetSAcks(peer, budget)
	if payload == nil {
		return false
	}

	msg, err := message.NewUnreliable(message.Params{
		ChunkType:  message.ChunkSAck,
		SourceAddr: s.primary.Address(),
		DestAddr:   peer,
		SessionID:  session,
		Data:       payload,
	})
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":   "(Service) sendSAck",
			"peer": message.AddrString(peer),
		}).Error("failed to build SAck")
		return false
	}
	if n, _ := s.sendOn(msg, []iface.Interface{out}, true); n == 0 {
		return false
	}

	s.sackMu.Lock()
	s.lastSAck[peer] = s.clock.Now()
	s.sackMu.Unlock()
	s.stats.sacksSent.Add(1)
	return true
}

// sendSAcks sends a SAck on the primary interface to every neighbor that
// is owed one. It returns the number sent.
func (s *Service) sendSAcks() int {
	sent := 0
	for _, peer := range s.reasm.GetNeighborsToBeAcknowledged() {
		if s.sendSAck(peer, s.primary) {
			sent++
		}
	}
	return sent
}
