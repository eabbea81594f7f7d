package reassembler

import (
	"slices"
	"sync"
	"time"

	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/go-nms/lib/util/time/monotonic"
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// Mode selects the release policy for reliable messages.
type Mode int

const (
	// Sequenced releases reliable messages in message id order only.
	Sequenced Mode = iota
	// Permissive releases any completed message.
	Permissive
)

func (m Mode) String() string {
	if m == Permissive {
		return "permissive"
	}
	return "sequenced"
}

// DefaultMaxUnreliableFragments bounds each unreliable queue.
const DefaultMaxUnreliableFragments = 256

// PushResult reports what Push did with a message.
type PushResult int

const (
	Failed    PushResult = -1
	Stored    PushResult = 0
	Duplicate PushResult = 1
)

// Options configure a Reassembler.
type Options struct {
	Mode Mode
	// SAckSilence is how long a source may stay quiet before it is no
	// longer acknowledged. Zero disables the cut-off.
	SAckSilence time.Duration
	// MaxTrackedIDs bounds how far ahead of the cumulative TSN a reliable
	// message id may be. Zero selects sack.DefaultMaxTrackedIDs.
	MaxTrackedIDs          int
	MaxUnreliableFragments int
	Clock                  *monotonic.Clock
}

type sourceState struct {
	reliable   *MsgQueue
	unreliable *MsgQueue
	lastHeard  time.Time
	owesAck    bool
}

// Reassembler is safe for concurrent use.
type Reassembler struct {
	opts    Options
	clock   *monotonic.Clock
	mu      sync.Mutex
	sources map[uint32]*sourceState
}

// New creates a Reassembler.
func New(opts Options) *Reassembler {
	if opts.MaxUnreliableFragments <= 0 {
		opts.MaxUnreliableFragments = DefaultMaxUnreliableFragments
	}
	clock := opts.Clock
	if clock == nil {
		clock = monotonic.NewClock()
	}
	log.WithFields(logger.Fields{
		"at":           "reassembler.New",
		"mode":         opts.Mode.String(),
		"sack_silence": opts.SAckSilence,
	}).Debug("creating reassembler")
	return &Reassembler{
		opts:    opts,
		clock:   clock,
		sources: make(map[uint32]*sourceState),
	}
}

func (r *Reassembler) source(src uint32) *sourceState {
	s, ok := r.sources[src]
	if !ok {
		s = &sourceState{
			reliable:   newReliableQueue(r.opts.MaxTrackedIDs),
			unreliable: newUnreliableQueue(r.opts.MaxUnreliableFragments),
		}
		r.sources[src] = s
	}
	return s
}

// Push stores msg received from src.
func (r *Reassembler) Push(src uint32, msg *message.NetworkMessage) (PushResult, error) {
	if msg == nil {
		return Failed, ErrNilMessage
	}
	if msg.ChunkType == message.ChunkSAck {
		return Failed, ErrSAckChunk
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.source(src)
	s.lastHeard = r.clock.Now()
	q := s.unreliable
	if msg.Reliable {
		q = s.reliable
		s.owesAck = true
	}

	isNew, err := q.push(msg)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":     "(Reassembler) Push",
			"src":    message.AddrString(src),
			"msg_id": msg.MsgID,
		}).Warn("rejecting message")
		return Failed, err
	}
	if !isNew {
		return Duplicate, nil
	}
	return Stored, nil
}

// Pop returns the next deliverable message from src, or nil.
func (r *Reassembler) Pop(src uint32) *message.NetworkMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sources[src]
	if !ok {
		return nil
	}
	if m := s.reliable.pop(r.opts.Mode); m != nil {
		return m
	}
	return s.unreliable.pop(Permissive)
}

func (r *Reassembler) silent(s *sourceState) bool {
	return r.opts.SAckSilence > 0 && r.clock.Since(s.lastHeard) > r.opts.SAckSilence
}

// GetSAcks encodes the acknowledgment state for src into at most maxLen
// bytes. It returns nil for unknown or silent sources and for sources that
// never sent reliable traffic.
func (r *Reassembler) GetSAcks(src uint32, maxLen int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sources[src]
	if !ok || r.silent(s) || !s.reliable.tracker.Initialized() {
		return nil
	}
	s.owesAck = false

	buf, err := s.reliable.tracker.SAck().MarshalBinary(maxLen)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":      "(Reassembler) GetSAcks",
			"src":     message.AddrString(src),
			"max_len": maxLen,
		}).Error("failed to encode SAck")
		return nil
	}
	return buf
}

// GetNeighborsToBeAcknowledged lists the sources owing an acknowledgment,
// in ascending address order.
func (r *Reassembler) GetNeighborsToBeAcknowledged() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []uint32
	for src, s := range r.sources {
		if r.silent(s) || !s.reliable.tracker.Initialized() {
			continue
		}
		if s.owesAck || s.reliable.tracker.HasGaps() {
			out = append(out, src)
		}
	}
	slices.Sort(out)
	return out
}

// Refresh marks src as recently heard.
func (r *Reassembler) Refresh(src uint32) {
	r.mu.Lock()
	r.source(src).lastHeard = r.clock.Now()
	r.mu.Unlock()
}

// QueueLen returns the number of messages held for src.
func (r *Reassembler) QueueLen(src uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sources[src]
	if !ok {
		return 0
	}
	return s.reliable.Len() + s.unreliable.Len()
}

// Sources lists the known source addresses in ascending order.
func (r *Reassembler) Sources() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint32, 0, len(r.sources))
	for src := range r.sources {
		out = append(out, src)
	}
	slices.Sort(out)
	return out
}

// SessionID returns the reliable session id last seen from src.
func (r *Reassembler) SessionID(src uint32) (uint16, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sources[src]
	if !ok || !s.reliable.hasSession {
		return 0, false
	}
	return s.reliable.sessionID, true
}

// SetSAckSilence changes the silence cut-off used by GetSAcks.
func (r *Reassembler) SetSAckSilence(d time.Duration) {
	r.mu.Lock()
	r.opts.SAckSilence = d
	r.mu.Unlock()
}
