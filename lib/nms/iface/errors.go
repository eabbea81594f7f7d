package iface

import "github.com/samber/oops"

var (
	ErrClosed          = oops.New("interface closed")
	ErrDuplicateAddr   = oops.New("address already attached to hub")
	ErrInvalidMTU      = oops.New("mtu must be positive")
	ErrFrameTooLarge   = oops.New("frame exceeds interface mtu")
	ErrNoLocalAddress  = oops.New("cannot determine local IPv4 address")
	ErrInvalidPort     = oops.New("udp port out of range")
	ErrInvalidGroup    = oops.New("multicast group is not an IPv4 multicast address")
	ErrInvalidHopLimit = oops.New("multicast ttl out of range")
)
