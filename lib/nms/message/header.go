package message

import (
	"encoding/binary"
)

const (
	// Version1 headers carry no extension: no queue length, no metadata
	// split and no checksum.
	Version1 uint8 = 1
	// Version2 headers append the 7-byte extension. This is what the
	// service emits.
	Version2 uint8 = 2

	// FixedHeaderLen is the size of the header common to all versions.
	FixedHeaderLen = 20
	// ExtensionLen is the size of the version 2 header extension.
	ExtensionLen = 7
	// HeaderLenV2 is the full version 2 header size.
	HeaderLenV2 = FixedHeaderLen + ExtensionLen

	// MaxMessageLen is the largest encodable message.
	MaxMessageLen = 0xFFFF
)

// Header flag bits, stored in the low nibble of byte 0.
const (
	FlagEncrypted   uint8 = 0x1
	FlagChecksummed uint8 = 0x2
)

// Byte offsets within the header.
const (
	offVersion   = 0
	offLength    = 1
	offMsgType   = 3
	offSource    = 4
	offDest      = 8
	offSession   = 12
	offMsgID     = 14
	offHopCount  = 16
	offTTL       = 17
	offChunkType = 18
	offReliable  = 19
	offQueueLen  = 20
	offMetaLen   = 21
	offChecksum  = 23
)

// HeaderLen returns the header size for the given version.
func HeaderLen(version uint8) int {
	if version >= Version2 {
		return HeaderLenV2
	}
	return FixedHeaderLen
}

// MarshalBinary encodes the message into its wire form.
func (m *NetworkMessage) MarshalBinary() ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	hdrLen := HeaderLen(m.Version)
	total := m.Len()
	buf := make([]byte, total)

	flags := uint8(0)
	if m.Encrypted {
		flags |= FlagEncrypted
	}
	if m.Checksummed && m.Version >= Version2 {
		flags |= FlagChecksummed
	}
	buf[offVersion] = m.Version<<4 | flags
	binary.BigEndian.PutUint16(buf[offLength:], uint16(total))
	buf[offMsgType] = m.MsgType
	binary.BigEndian.PutUint32(buf[offSource:], m.SourceAddr)
	binary.BigEndian.PutUint32(buf[offDest:], m.DestAddr)
	binary.BigEndian.PutUint16(buf[offSession:], m.SessionID)
	binary.BigEndian.PutUint16(buf[offMsgID:], m.MsgID)
	buf[offHopCount] = m.HopCount
	buf[offTTL] = m.TTL
	buf[offChunkType] = uint8(m.ChunkType)
	if m.Reliable {
		buf[offReliable] = 1
	}

	if m.Version >= Version2 {
		buf[offQueueLen] = m.QueueLength
		binary.BigEndian.PutUint16(buf[offMetaLen:], uint16(len(m.Metadata)))
		binary.BigEndian.PutUint32(buf[offChecksum:], m.Checksum)
	}

	n := copy(buf[hdrLen:], m.Metadata)
	copy(buf[hdrLen+n:], m.Data)
	return buf, nil
}

// Parse decodes a datagram into a NetworkMessage. The returned message owns
// copies of the metadata and data bytes.
func Parse(raw []byte) (*NetworkMessage, error) {
	if len(raw) < FixedHeaderLen {
		return nil, ErrTruncated
	}

	version := raw[offVersion] >> 4
	flags := raw[offVersion] & 0x0F
	if version != Version1 && version != Version2 {
		return nil, ErrBadVersion
	}
	hdrLen := HeaderLen(version)
	if len(raw) < hdrLen {
		return nil, ErrTruncated
	}

	total := int(binary.BigEndian.Uint16(raw[offLength:]))
	if total != len(raw) {
		return nil, ErrBadLength
	}

	ct := ChunkType(raw[offChunkType])
	if !ct.Valid() {
		return nil, ErrBadChunkType
	}

	m := &NetworkMessage{
		Version:     version,
		MsgType:     raw[offMsgType],
		SourceAddr:  binary.BigEndian.Uint32(raw[offSource:]),
		DestAddr:    binary.BigEndian.Uint32(raw[offDest:]),
		SessionID:   binary.BigEndian.Uint16(raw[offSession:]),
		MsgID:       binary.BigEndian.Uint16(raw[offMsgID:]),
		HopCount:    raw[offHopCount],
		TTL:         raw[offTTL],
		ChunkType:   ct,
		Reliable:    raw[offReliable] != 0,
		Encrypted:   flags&FlagEncrypted != 0,
		Checksummed: version >= Version2 && flags&FlagChecksummed != 0,
	}

	body := raw[hdrLen:]
	metaLen := 0
	if version >= Version2 {
		m.QueueLength = raw[offQueueLen]
		metaLen = int(binary.BigEndian.Uint16(raw[offMetaLen:]))
		m.Checksum = binary.BigEndian.Uint32(raw[offChecksum:])
		if metaLen > len(body) {
			return nil, ErrBadMetadataLen
		}
	}

	if metaLen > 0 {
		m.Metadata = append([]byte(nil), body[:metaLen]...)
	}
	if len(body) > metaLen {
		m.Data = append([]byte(nil), body[metaLen:]...)
	}
	return m, nil
}
