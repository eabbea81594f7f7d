package reassembler

import (
	"slices"

	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/go-nms/lib/nms/sack"
	"github.com/go-i2p/go-nms/lib/util/seqarith"
	"github.com/go-i2p/logger"
)

// MsgQueue holds the received, not yet released messages of one source
// session, ordered by message id.
type MsgQueue struct {
	sessionID  uint16
	hasSession bool

	// exactly one of tracker (reliable) and window (unreliable) is set
	tracker *sack.Tracker
	window  *sack.Window

	msgs  []*message.NetworkMessage
	limit int
}

func newReliableQueue(maxTracked int) *MsgQueue {
	return &MsgQueue{tracker: sack.NewTracker(maxTracked)}
}

func newUnreliableQueue(limit int) *MsgQueue {
	return &MsgQueue{window: sack.NewWindow(0), limit: limit}
}

// Len returns the number of queued messages.
func (q *MsgQueue) Len() int {
	return len(q.msgs)
}

// reset drops the queue content and starts a new session whose first
// arrival is id.
func (q *MsgQueue) reset(sessionID, id uint16) {
	q.sessionID = sessionID
	q.hasSession = true
	q.msgs = nil
	if q.tracker != nil {
		q.tracker.Begin(id)
	} else {
		q.window.Reset()
		q.window.Observe(id)
	}
}

// push records msg; it returns true if msg was new and stored.
func (q *MsgQueue) push(msg *message.NetworkMessage) (bool, error) {
	if !q.hasSession || q.sessionID != msg.SessionID {
		if q.hasSession {
			log.WithFields(logger.Fields{
				"at":          "(MsgQueue) push",
				"old_session": q.sessionID,
				"new_session": msg.SessionID,
				"dropped":     len(q.msgs),
			}).Debug("session changed, resetting queue")
		}
		q.reset(msg.SessionID, msg.MsgID)
		q.insert(msg)
		return true, nil
	}

	if q.tracker != nil {
		isNew, err := q.tracker.Mark(msg.MsgID)
		if err != nil || !isNew {
			return false, err
		}
	} else if !q.window.Observe(msg.MsgID) {
		return false, nil
	}

	q.insert(msg)
	if q.limit > 0 && len(q.msgs) > q.limit {
		q.msgs = q.msgs[1:]
	}
	return true, nil
}

// insert places msg in message id order.
func (q *MsgQueue) insert(msg *message.NetworkMessage) {
	i := len(q.msgs)
	for i > 0 && seqarith.LessThan(msg.MsgID, q.msgs[i-1].MsgID) {
		i--
	}
	q.msgs = slices.Insert(q.msgs, i, msg)
}

// received reports whether id has arrived during the current session,
// whether or not it is still queued.
func (q *MsgQueue) received(id uint16) bool {
	if q.tracker != nil {
		return q.tracker.Received(id)
	}
	return q.window.Contains(id)
}

// contiguous reports whether every id up to and including id has arrived.
func (q *MsgQueue) contiguous(id uint16) bool {
	if q.tracker == nil {
		return true
	}
	return seqarith.LessThanOrEqual(id, q.tracker.Cumulative())
}

// orphan reports whether the fragment at index i can never complete
// because its predecessor arrived and left the queue.
func (q *MsgQueue) orphan(i int) bool {
	m := q.msgs[i]
	if m.ChunkType != message.ChunkInter && m.ChunkType != message.ChunkEnd {
		return false
	}
	prev := seqarith.Prev(m.MsgID)
	if i > 0 && q.msgs[i-1].MsgID == prev {
		return false
	}
	return q.received(prev)
}

// trainStatus describes the train starting at a Start fragment.
type trainStatus int

const (
	trainComplete trainStatus = iota
	trainGap
	trainBroken
)

// scanTrain walks from the Start at index i. It returns the index of the
// End for a complete train, or the index at which the walk stopped.
func (q *MsgQueue) scanTrain(i int) (int, trainStatus) {
	prev := q.msgs[i].MsgID
	for j := i + 1; j < len(q.msgs); j++ {
		m := q.msgs[j]
		if m.MsgID != seqarith.Next(prev) {
			return j, trainGap
		}
		switch m.ChunkType {
		case message.ChunkInter:
			prev = m.MsgID
		case message.ChunkEnd:
			return j, trainComplete
		default:
			return j, trainBroken
		}
	}
	return len(q.msgs), trainGap
}

// pop releases the next deliverable message, or nil.
func (q *MsgQueue) pop(mode Mode) *message.NetworkMessage {
	if mode == Sequenced && q.tracker != nil {
		return q.popSequenced()
	}
	return q.popPermissive()
}

func (q *MsgQueue) popSequenced() *message.NetworkMessage {
	for len(q.msgs) > 0 {
		if q.orphan(0) {
			q.discard(0, 1, "orphan fragment")
			continue
		}
		head := q.msgs[0]
		if !q.contiguous(head.MsgID) {
			return nil
		}
		switch head.ChunkType {
		case message.ChunkComplete:
			q.msgs = q.msgs[1:]
			return head
		case message.ChunkStart:
			end, status := q.scanTrain(0)
			switch status {
			case trainComplete:
				return q.assemble(0, end)
			case trainBroken:
				q.discard(0, end, "train interrupted")
			default:
				return nil
			}
		default:
			// contiguous Inter/End at the head without its Start is
			// covered by orphan(); anything else is unusable
			q.discard(0, 1, "unexpected chunk at queue head")
		}
	}
	return nil
}

func (q *MsgQueue) popPermissive() *message.NetworkMessage {
	i := 0
	for i < len(q.msgs) {
		if q.orphan(i) {
			q.discard(i, i+1, "orphan fragment")
			continue
		}
		m := q.msgs[i]
		switch m.ChunkType {
		case message.ChunkComplete:
			q.msgs = slices.Delete(q.msgs, i, i+1)
			return m
		case message.ChunkStart:
			end, status := q.scanTrain(i)
			switch status {
			case trainComplete:
				return q.assemble(i, end)
			case trainBroken:
				q.discard(i, end, "train interrupted")
			default:
				i = end
			}
		default:
			i++
		}
	}
	return nil
}

// assemble merges msgs[first..last] into a Complete message and removes
// the fragments from the queue.
func (q *MsgQueue) assemble(first, last int) *message.NetworkMessage {
	train := q.msgs[first : last+1]
	metaLen, dataLen := 0, 0
	for _, f := range train {
		metaLen += len(f.Metadata)
		dataLen += len(f.Data)
	}

	var metadata, data []byte
	if metaLen > 0 {
		metadata = make([]byte, 0, metaLen)
	}
	if dataLen > 0 {
		data = make([]byte, 0, dataLen)
	}
	for _, f := range train {
		metadata = append(metadata, f.Metadata...)
		data = append(data, f.Data...)
	}

	head := train[0]
	out := &message.NetworkMessage{
		Version:     head.Version,
		MsgType:     head.MsgType,
		ChunkType:   message.ChunkComplete,
		SourceAddr:  head.SourceAddr,
		DestAddr:    head.DestAddr,
		SessionID:   head.SessionID,
		MsgID:       head.MsgID,
		HopCount:    head.HopCount,
		TTL:         head.TTL,
		Reliable:    head.Reliable,
		Encrypted:   head.Encrypted,
		Checksummed: head.Checksummed,
		Checksum:    head.Checksum,
		QueueLength: train[len(train)-1].QueueLength,
		Metadata:    metadata,
		Data:        data,
	}
	q.msgs = slices.Delete(q.msgs, first, last+1)
	return out
}

func (q *MsgQueue) discard(from, to int, reason string) {
	log.WithFields(logger.Fields{
		"at":       "(MsgQueue) discard",
		"reason":   reason,
		"msg_id":   q.msgs[from].MsgID,
		"count":    to - from,
		"reliable": q.tracker != nil,
	}).Debug("discarding undeliverable fragments")
	q.msgs = slices.Delete(q.msgs, from, to)
}
