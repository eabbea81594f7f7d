package message

import "fmt"

// ChunkType classifies a message's position within a fragment train, or
// marks it as a selective acknowledgment.
type ChunkType uint8

const (
	// ChunkComplete is an unfragmented message.
	ChunkComplete ChunkType = 0x00
	// ChunkStart is the first fragment of a train.
	ChunkStart ChunkType = 0x01
	// ChunkInter is a fragment strictly inside a train.
	ChunkInter ChunkType = 0x02
	// ChunkEnd is the last fragment of a train.
	ChunkEnd ChunkType = 0x03
	// ChunkSAck is a selective acknowledgment; its data is a SAck payload.
	ChunkSAck ChunkType = 0x04
)

// Valid reports whether c is one of the defined chunk types.
func (c ChunkType) Valid() bool {
	return c <= ChunkSAck
}

// IsFragment reports whether c belongs to a multi-message train.
func (c ChunkType) IsFragment() bool {
	return c == ChunkStart || c == ChunkInter || c == ChunkEnd
}

func (c ChunkType) String() string {
	switch c {
	case ChunkComplete:
		return "Complete"
	case ChunkStart:
		return "Start"
	case ChunkInter:
		return "Inter"
	case ChunkEnd:
		return "End"
	case ChunkSAck:
		return "SAck"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}
