package service

import (
	"github.com/go-i2p/go-nms/lib/nms/iface"
	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/go-nms/lib/nms/reassembler"
	"github.com/go-i2p/logger"
)

// MessageArrived is the inbound entry point for interfaces. It returns
// the parse or protocol error for frames it dropped; nothing is delivered
// for those.
func (s *Service) MessageArrived(raw []byte, in iface.Interface, senderAddr uint32) error {
	if s.closed.Load() {
		return ErrServiceClosed
	}
	msg, err := message.Parse(raw)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":     "(Service) MessageArrived",
			"sender": message.AddrString(senderAddr),
			"bytes":  len(raw),
		}).Debug("dropping unparsable frame")
		return err
	}
	s.stats.received.Add(1)

	if s.isOwnAddress(msg.SourceAddr) {
		return nil
	}
	if msg.Encrypted && s.currentKey() == nil {
		s.trace(logger.Fields{
			"at":  "(Service) MessageArrived",
			"src": message.AddrString(msg.SourceAddr),
		}, "dropping encrypted message, no group key")
		return nil
	}

	inName := ""
	var inBroadcast uint32
	if in != nil {
		inName = in.Name()
		inBroadcast = in.BroadcastAddress()
	}
	s.reasm.Refresh(msg.SourceAddr)
	if msg.Version >= message.Version2 {
		s.neighbors.update(inName, msg.SourceAddr, msg.QueueLength)
	}

	s.trace(logger.Fields{
		"at":       "(Service) MessageArrived",
		"iface":    inName,
		"src":      message.AddrString(msg.SourceAddr),
		"dest":     message.AddrString(msg.DestAddr),
		"msg_id":   msg.MsgID,
		"chunk":    msg.ChunkType.String(),
		"reliable": msg.Reliable,
	}, "message arrived")

	switch {
	case msg.ChunkType == message.ChunkSAck:
		return s.ackArrived(msg)
	case s.isOwnAddress(msg.DestAddr):
		s.unicastArrived(msg, in)
	case message.IsManycastFor(msg.DestAddr, inBroadcast):
		s.manycastArrived(msg, in)
	default:
		s.trace(logger.Fields{
			"at":   "(Service) MessageArrived",
			"dest": message.AddrString(msg.DestAddr),
		}, "message not addressed to us")
	}
	return nil
}

func (s *Service) unicastArrived(msg *message.NetworkMessage, in iface.Interface) {
	src := msg.SourceAddr
	inName := ifaceName(in)

	s.arrivedMu.Lock()
	s.peer(src).observeUnicast(msg.SessionID)
	res, err := s.reasm.Push(src, msg)
	if res == reassembler.Duplicate {
		s.stats.duplicates.Add(1)
	}
	if err == nil {
		for m := s.reasm.Pop(src); m != nil; m = s.reasm.Pop(src) {
			s.deliver(m, inName, true)
		}
	}
	s.arrivedMu.Unlock()

	if msg.Reliable {
		s.acknowledge(src, in)
	}
}

func (s *Service) manycastArrived(msg *message.NetworkMessage, in iface.Interface) {
	if msg.ChunkType != message.ChunkComplete {
		log.WithFields(logger.Fields{
			"at":    "(Service) manycastArrived",
			"src":   message.AddrString(msg.SourceAddr),
			"chunk": msg.ChunkType.String(),
		}).Debug("dropping fragmented manycast message")
		return
	}

	s.arrivedMu.Lock()
	if !s.peer(msg.SourceAddr).observeManycast(msg.SessionID, msg.DestAddr, msg.MsgID) {
		s.arrivedMu.Unlock()
		s.stats.duplicates.Add(1)
		return
	}
	var fwd *message.NetworkMessage
	if msg.CanForward() {
		fwd = msg.Clone()
		fwd.HopCount++
	}
	s.deliver(msg, ifaceName(in), false)
	s.arrivedMu.Unlock()

	if fwd != nil {
		s.rebroadcast(fwd)
	}
}

// rebroadcast forwards a manycast message on every interface.
func (s *Service) rebroadcast(msg *message.NetworkMessage) {
	if s.limiter != nil && !s.limiter.Allow() {
		s.trace(logger.Fields{
			"at":     "(Service) rebroadcast",
			"src":    message.AddrString(msg.SourceAddr),
			"msg_id": msg.MsgID,
		}, "rebroadcast rate exceeded")
		return
	}
	if n, err := s.sendOn(msg, s.ifaces, false); n == 0 {
		log.WithError(err).WithFields(logger.Fields{
			"at":     "(Service) rebroadcast",
			"src":    message.AddrString(msg.SourceAddr),
			"msg_id": msg.MsgID,
		}).Debug("rebroadcast failed")
		return
	}
	s.stats.rebroadcast.Add(1)
}

func ifaceName(in iface.Interface) string {
	if in == nil {
		return ""
	}
	return in.Name()
}
