package iface

import "github.com/go-i2p/logger"

var log = logger.GetGoI2PLogger()

// Interface is one network attachment of the service.
type Interface interface {
	// Name identifies the interface in configuration and TransmissionInfo.
	Name() string
	// Address is our IPv4 address on this interface.
	Address() uint32
	// BroadcastAddress is the directed broadcast address of the attached
	// network, or 0 when there is none.
	BroadcastAddress() uint32
	// MTU is the largest raw message Send accepts.
	MTU() int
	// Send transmits raw to dest. Expedited frames skip any local queue.
	Send(raw []byte, dest uint32, expedited bool) error
	// QueueLength is the number of frames waiting on this interface,
	// saturated at 255.
	QueueLength() uint8
}

// Receiver consumes raw messages read from an interface.
type Receiver interface {
	MessageArrived(raw []byte, in Interface, senderAddr uint32) error
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(raw []byte, in Interface, senderAddr uint32) error

func (f ReceiverFunc) MessageArrived(raw []byte, in Interface, senderAddr uint32) error {
	return f(raw, in, senderAddr)
}

func saturate(n int) uint8 {
	if n > 0xFF {
		return 0xFF
	}
	if n < 0 {
		return 0
	}
	return uint8(n)
}
