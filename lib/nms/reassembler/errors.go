package reassembler

import (
	"github.com/go-i2p/go-nms/lib/nms/sack"
	"github.com/samber/oops"
)

var (
	ErrNilMessage = oops.New("nil message")
	ErrSAckChunk  = oops.New("SAck chunks are not reassembled")
	// ErrOutOfWindow is returned for reliable message ids too far ahead of
	// the cumulative TSN to be tracked.
	ErrOutOfWindow = sack.ErrOutOfWindow
)
