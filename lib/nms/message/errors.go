package message

import "github.com/samber/oops"

var (
	ErrTruncated        = oops.New("network message truncated")
	ErrBadVersion       = oops.New("unsupported network message version")
	ErrBadLength        = oops.New("network message length field does not match datagram")
	ErrBadChunkType     = oops.New("invalid chunk type")
	ErrTooLarge         = oops.New("network message exceeds maximum length")
	ErrHopCountTTL      = oops.New("hop count exceeds ttl")
	ErrBadMetadataLen   = oops.New("metadata length exceeds message body")
	ErrInvalidChunkSize = oops.New("fragment chunk size must be positive")
	ErrBadAddress       = oops.New("invalid IPv4 address")
)
