package service

import (
	"slices"

	"github.com/go-i2p/go-nms/lib/nms/message"
)

// HintNoEncrypt in MessageInfo.Hints sends the message in the clear even
// when a group key is configured.
const HintNoEncrypt = "no-encrypt"

// TransmissionInfo says where and how a message is sent.
type TransmissionInfo struct {
	DestAddr uint32
	// Interfaces names the outgoing interfaces. Empty selects the primary
	// interface for unicast and every interface for manycast.
	Interfaces []string
	Reliable   bool
	Expedited  bool
	// TTL bounds manycast rebroadcasting. 0 selects the configured default.
	TTL uint8
}

// MessageInfo is the application payload of a message.
type MessageInfo struct {
	MsgType  uint8
	Metadata []byte
	Data     []byte
	Hints    []string
}

func (mi MessageInfo) hasHint(h string) bool {
	return slices.Contains(mi.Hints, h)
}

// Delivery is a received message as seen by listeners. Metadata and Data
// are decrypted and verified.
type Delivery struct {
	Interface  string
	SourceAddr uint32
	DestAddr   uint32
	MsgType    uint8
	SessionID  uint16
	MsgID      uint16
	HopCount   uint8
	TTL        uint8
	Reliable   bool
	Unicast    bool
	Metadata   []byte
	Data       []byte
}

func newDelivery(msg *message.NetworkMessage, ifaceName string, unicast bool, metadata, data []byte) *Delivery {
	return &Delivery{
		Interface:  ifaceName,
		SourceAddr: msg.SourceAddr,
		DestAddr:   msg.DestAddr,
		MsgType:    msg.MsgType,
		SessionID:  msg.SessionID,
		MsgID:      msg.MsgID,
		HopCount:   msg.HopCount,
		TTL:        msg.TTL,
		Reliable:   msg.Reliable,
		Unicast:    unicast,
		Metadata:   metadata,
		Data:       data,
	}
}

// Listener receives messages of the type it was registered for.
type Listener interface {
	MessageArrived(d *Delivery) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(d *Delivery) error

func (f ListenerFunc) MessageArrived(d *Delivery) error {
	return f(d)
}

// ListenerID identifies a registration for DeregisterHandlerCallback.
type ListenerID int
