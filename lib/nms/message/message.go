package message

// NetworkMessage is one wire-format unit. A message is owned by exactly one
// holder at a time (send table, reassembly queue, delivery queue); holders
// that hand a message to another owner must Clone it if they keep using it.
type NetworkMessage struct {
	Version   uint8
	MsgType   uint8
	ChunkType ChunkType

	SourceAddr uint32
	DestAddr   uint32

	// SessionID identifies a transmission epoch of the source. It changes
	// when the sender restarts, invalidating earlier message ids.
	SessionID uint16
	// MsgID is the wraparound sequence number within the session. It must
	// only be compared through seqarith.
	MsgID uint16

	HopCount uint8
	TTL      uint8

	Reliable    bool
	Encrypted   bool
	Checksummed bool

	// QueueLength is the sender's advertised outgoing queue length (v2).
	QueueLength uint8
	// Checksum is the CRC-32 of the plaintext logical message (v2). It is 0
	// on encrypted messages, where it travels inside the metadata blob.
	Checksum uint32

	Metadata []byte
	Data     []byte
}

// Params holds the application-supplied fields for New.
type Params struct {
	MsgType    uint8
	ChunkType  ChunkType
	SourceAddr uint32
	DestAddr   uint32
	SessionID  uint16
	MsgID      uint16
	HopCount   uint8
	TTL        uint8
	Reliable   bool
	Encrypted  bool
	// Checksummed marks Checksum as meaningful.
	Checksummed bool
	Checksum    uint32
	QueueLength uint8
	Metadata    []byte
	Data        []byte
}

// New builds a version 2 message from application fields. It fails instead
// of producing a message that could not be encoded.
func New(p Params) (*NetworkMessage, error) {
	m := &NetworkMessage{
		Version:     Version2,
		MsgType:     p.MsgType,
		ChunkType:   p.ChunkType,
		SourceAddr:  p.SourceAddr,
		DestAddr:    p.DestAddr,
		SessionID:   p.SessionID,
		MsgID:       p.MsgID,
		HopCount:    p.HopCount,
		TTL:         p.TTL,
		Reliable:    p.Reliable,
		Encrypted:   p.Encrypted,
		Checksummed: p.Checksummed,
		Checksum:    p.Checksum,
		QueueLength: p.QueueLength,
		Metadata:    p.Metadata,
		Data:        p.Data,
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewReliable builds a message that the sender records for retransmission.
func NewReliable(p Params) (*NetworkMessage, error) {
	p.Reliable = true
	return New(p)
}

// NewUnreliable builds a fire-and-forget message.
func NewUnreliable(p Params) (*NetworkMessage, error) {
	p.Reliable = false
	return New(p)
}

func (m *NetworkMessage) validate() error {
	if !m.ChunkType.Valid() {
		return ErrBadChunkType
	}
	if m.HopCount > m.TTL {
		return ErrHopCountTTL
	}
	if m.Version < Version2 && len(m.Metadata) > 0 {
		return ErrBadMetadataLen
	}
	if m.Len() > MaxMessageLen {
		return ErrTooLarge
	}
	return nil
}

// Len returns the encoded size of the message.
func (m *NetworkMessage) Len() int {
	return HeaderLen(m.Version) + len(m.Metadata) + len(m.Data)
}

// PayloadLen returns the number of metadata and data bytes carried.
func (m *NetworkMessage) PayloadLen() int {
	return len(m.Metadata) + len(m.Data)
}

// CanForward reports whether a manycast message may be rebroadcast.
func (m *NetworkMessage) CanForward() bool {
	return m.HopCount < m.TTL
}

// Clone returns a deep copy of m.
func (m *NetworkMessage) Clone() *NetworkMessage {
	c := *m
	if m.Metadata != nil {
		c.Metadata = append([]byte(nil), m.Metadata...)
	}
	if m.Data != nil {
		c.Data = append([]byte(nil), m.Data...)
	}
	return &c
}
