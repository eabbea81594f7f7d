package service

import "github.com/samber/oops"

var (
	ErrNoPrimaryInterface     = oops.New("no primary interface configured")
	ErrNoInterfaceAvailable   = oops.New("no interface could send the message")
	ErrInvalidDestination     = oops.New("invalid destination address")
	ErrInvalidRetransmissions = oops.New("maximum retransmissions must fit in 8 bits")
	ErrInvalidTimeout         = oops.New("retransmission timeout too small")
	ErrMessageTooLarge        = oops.New("message too large")
	ErrWindowFull             = oops.New("too many reliable messages awaiting acknowledgment")
	ErrChecksumMismatch       = oops.New("payload checksum mismatch")
	ErrDecryptFailed          = oops.New("payload decryption failed")
	ErrNoEncryptionKey        = oops.New("message is encrypted but no key is configured")
	ErrMalformedSAck          = oops.New("malformed SAck message")
	ErrServiceClosed          = oops.New("service closed")
	ErrUnknownInterface       = oops.New("unknown interface")
	ErrDuplicateInterface     = oops.New("interface name used twice")
)
