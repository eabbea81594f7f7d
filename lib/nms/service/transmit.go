package service

import (
	"github.com/go-i2p/go-nms/lib/nms/iface"
	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/go-nms/lib/nms/sack"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// payload is an application message after checksumming and optional
// encryption, ready to be split into chunks.
type payload struct {
	msgType     uint8
	metadata    []byte
	data        []byte
	encrypted   bool
	checksummed bool
	checksum    uint32
}

// TransmitMessage sends mi to tr.DestAddr. Unicast payloads larger than one
// chunk are fragmented; manycast destinations take the BroadcastMessage
// path. A reliable message that no interface could send is still kept for
// retransmission, and ErrNoInterfaceAvailable is returned.
func (s *Service) TransmitMessage(tr TransmissionInfo, mi MessageInfo) error {
	if s.closed.Load() {
		return ErrServiceClosed
	}
	if s.primary == nil {
		return ErrNoPrimaryInterface
	}
	if message.IsManycastFor(tr.DestAddr, s.primary.BroadcastAddress()) {
		return s.BroadcastMessage(tr, mi)
	}
	if tr.DestAddr == 0 || s.isOwnAddress(tr.DestAddr) {
		return oops.Wrapf(ErrInvalidDestination, "%s", message.AddrString(tr.DestAddr))
	}

	out, err := s.resolveInterfaces(tr.Interfaces, false)
	if err != nil {
		return err
	}
	p, err := s.preparePayload(mi)
	if err != nil {
		return err
	}
	return s.fragmentAndTransmit(tr, p, out)
}

// BroadcastMessage sends mi as one unreliable Complete message to a
// broadcast or multicast address. A zero DestAddr selects the limited
// broadcast address. Payloads that do not fit one chunk are rejected.
func (s *Service) BroadcastMessage(tr TransmissionInfo, mi MessageInfo) error {
	if s.closed.Load() {
		return ErrServiceClosed
	}
	if s.primary == nil {
		return ErrNoPrimaryInterface
	}
	dest := tr.DestAddr
	if dest == 0 {
		dest = message.BroadcastAddr
	}
	if !message.IsManycastFor(dest, s.primary.BroadcastAddress()) {
		return oops.Wrapf(ErrInvalidDestination, "%s is not a manycast address", message.AddrString(dest))
	}

	out, err := s.resolveInterfaces(tr.Interfaces, true)
	if err != nil {
		return err
	}
	p, err := s.preparePayload(mi)
	if err != nil {
		return err
	}
	budget := s.payloadBudget(out)
	if !message.Fits(budget, len(p.metadata), len(p.data)) {
		return oops.Wrapf(ErrMessageTooLarge, "%d payload bytes, broadcast budget %d",
			len(p.metadata)+len(p.data), budget)
	}

	msg, err := message.NewUnreliable(message.Params{
		MsgType:     p.msgType,
		ChunkType:   message.ChunkComplete,
		SourceAddr:  s.primary.Address(),
		DestAddr:    dest,
		SessionID:   s.sessionID,
		MsgID:       s.nextMsgIDs(dest, false, 1),
		TTL:         s.ttl(tr.TTL),
		Encrypted:   p.encrypted,
		Checksummed: p.checksummed,
		Checksum:    p.checksum,
		Metadata:    p.metadata,
		Data:        p.data,
	})
	if err != nil {
		return err
	}
	return s.sendNetworkMessage(msg, out, tr.Expedited)
}

func (s *Service) ttl(requested uint8) uint8 {
	if requested != 0 {
		return requested
	}
	return uint8(s.cfg.DefaultTTL)
}

// resolveInterfaces maps interface names to interfaces. An empty list
// selects every interface for manycast and the primary one otherwise.
func (s *Service) resolveInterfaces(names []string, manycast bool) ([]iface.Interface, error) {
	if len(names) == 0 {
		if manycast {
			return s.ifaces, nil
		}
		return []iface.Interface{s.primary}, nil
	}
	out := make([]iface.Interface, 0, len(names))
	for _, n := range names {
		ifc, ok := s.byName[n]
		if !ok {
			return nil, oops.Wrapf(ErrUnknownInterface, "%s", n)
		}
		out = append(out, ifc)
	}
	return out, nil
}

// payloadBudget is the smallest MTU across out, capped by the configured
// MTU, minus the version 2 header.
func (s *Service) payloadBudget(out []iface.Interface) int {
	mtu := s.cfg.MTU
	for _, ifc := range out {
		if mtu <= 0 || ifc.MTU() < mtu {
			mtu = ifc.MTU()
		}
	}
	return mtu - message.HeaderLenV2
}

// nextMsgIDs reserves n consecutive message ids for dest and returns the
// first one.
func (s *Service) nextMsgIDs(dest uint32, reliable bool, n int) uint16 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	seq := s.unreliableSeq
	if reliable {
		seq = s.reliableSeq
	}
	first := seq[dest]
	seq[dest] = first + uint16(n)
	return first
}

func (s *Service) fragmentAndTransmit(tr TransmissionInfo, p payload, out []iface.Interface) error {
	budget := s.payloadBudget(out)
	if budget <= 0 {
		return oops.Wrapf(ErrMessageTooLarge, "interface mtu leaves no room for payload")
	}

	base := message.Params{
		MsgType:     p.msgType,
		SourceAddr:  s.primary.Address(),
		DestAddr:    tr.DestAddr,
		SessionID:   s.sessionID,
		TTL:         s.ttl(tr.TTL),
		Reliable:    tr.Reliable,
		Encrypted:   p.encrypted,
		Checksummed: p.checksummed,
		Checksum:    p.checksum,
	}

	if message.Fits(budget, len(p.metadata), len(p.data)) {
		if err := s.checkWindow(tr, 1); err != nil {
			return err
		}
		params := base
		params.ChunkType = message.ChunkComplete
		params.MsgID = s.nextMsgIDs(tr.DestAddr, tr.Reliable, 1)
		params.Metadata = p.metadata
		params.Data = p.data
		msg, err := newMessage(params)
		if err != nil {
			return err
		}
		return s.sendNetworkMessage(msg, out, tr.Expedited)
	}

	f, err := message.NewFragmenter(budget, p.metadata, p.data)
	if err != nil {
		return err
	}
	count := f.Count()
	if tr.Reliable && count > sack.DefaultMaxTrackedIDs {
		return oops.Wrapf(ErrMessageTooLarge, "%d fragments exceed the acknowledgment window", count)
	}
	if count > 0xFFFF/2 {
		return oops.Wrapf(ErrMessageTooLarge, "%d fragments", count)
	}
	if err := s.checkWindow(tr, count); err != nil {
		return err
	}

	id := s.nextMsgIDs(tr.DestAddr, tr.Reliable, count)
	s.trace(logger.Fields{
		"at":        "(Service) fragmentAndTransmit",
		"dest":      message.AddrString(tr.DestAddr),
		"fragments": count,
		"first_id":  id,
		"budget":    budget,
	}, "fragmenting message")

	var firstErr error
	for {
		frag, ok := f.Next()
		if !ok {
			break
		}
		params := base
		params.ChunkType = frag.Type
		params.MsgID = id
		params.Metadata = frag.Metadata
		params.Data = frag.Data
		id++

		msg, err := newMessage(params)
		if err != nil {
			return err
		}
		if err := s.sendNetworkMessage(msg, out, tr.Expedited); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// checkWindow refuses a reliable send of n ids once the ids still awaiting
// acknowledgment from tr.DestAddr would outgrow the receiver's tracking
// window. Past that point new ids could wrap onto pending ones.
func (s *Service) checkWindow(tr TransmissionInfo, n int) error {
	if !tr.Reliable {
		return nil
	}
	if pending := s.UnackedCount(tr.DestAddr); pending+n > sack.DefaultMaxTrackedIDs {
		return oops.Wrapf(ErrWindowFull, "%d pending to %s, %d more requested",
			pending, message.AddrString(tr.DestAddr), n)
	}
	return nil
}

func newMessage(p message.Params) (*message.NetworkMessage, error) {
	if p.Reliable {
		return message.NewReliable(p)
	}
	return message.NewUnreliable(p)
}

// sendNetworkMessage sends msg on every interface in out. Reliable unicast
// messages are recorded for retransmission whether or not a send succeeded.
func (s *Service) sendNetworkMessage(msg *message.NetworkMessage, out []iface.Interface, expedited bool) error {
	sent, lastErr := s.sendOn(msg, out, expedited)

	if msg.Reliable && !message.IsManycast(msg.DestAddr) {
		s.recordUnacked(msg, out)
	}
	if sent == 0 {
		if lastErr == nil {
			lastErr = ErrNoInterfaceAvailable
		}
		log.WithError(lastErr).WithFields(logger.Fields{
			"at":     "(Service) sendNetworkMessage",
			"dest":   message.AddrString(msg.DestAddr),
			"msg_id": msg.MsgID,
		}).Warn("message could not be sent on any interface")
		return oops.Wrapf(ErrNoInterfaceAvailable, "%v", lastErr)
	}
	return nil
}

// sendOn encodes msg once per interface, stamping each copy with that
// interface's queue length. It returns how many sends succeeded.
func (s *Service) sendOn(msg *message.NetworkMessage, out []iface.Interface, expedited bool) (int, error) {
	sent := 0
	var lastErr error
	for _, ifc := range out {
		msg.QueueLength = ifc.QueueLength()
		raw, err := msg.MarshalBinary()
		if err != nil {
			return 0, err
		}
		if err := ifc.Send(raw, msg.DestAddr, expedited); err != nil {
			lastErr = err
			log.WithError(err).WithFields(logger.Fields{
				"at":    "(Service) sendOn",
				"iface": ifc.Name(),
				"dest":  message.AddrString(msg.DestAddr),
			}).Debug("interface send failed")
			continue
		}
		sent++
		s.stats.sent.Add(1)
		s.trace(logger.Fields{
			"at":       "(Service) sendOn",
			"iface":    ifc.Name(),
			"dest":     message.AddrString(msg.DestAddr),
			"msg_id":   msg.MsgID,
			"chunk":    msg.ChunkType.String(),
			"reliable": msg.Reliable,
			"bytes":    len(raw),
		}, "message sent")
	}
	return sent, lastErr
}
