package message

import (
	"encoding/binary"
	"net"
)

// BroadcastAddr is the limited broadcast address 255.255.255.255.
const BroadcastAddr uint32 = 0xFFFFFFFF

// AddrString formats an address in dotted-quad form.
func AddrString(addr uint32) string {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, addr)
	return ip.String()
}

// ParseAddr parses a dotted-quad IPv4 address.
func ParseAddr(s string) (uint32, error) {
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return 0, ErrBadAddress
	}
	return binary.BigEndian.Uint32(ip), nil
}

// AddrFromIP converts a net.IP to the uint32 form, returning 0 for non-IPv4.
func AddrFromIP(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v4)
}

// IPFromAddr converts the uint32 form to a net.IP.
func IPFromAddr(addr uint32) net.IP {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, addr)
	return ip
}

// IsMulticast reports whether addr is in 224.0.0.0/4.
func IsMulticast(addr uint32) bool {
	return addr>>28 == 0xE
}

// IsManycast reports whether addr is the limited broadcast address or a
// multicast group.
func IsManycast(addr uint32) bool {
	return addr == BroadcastAddr || IsMulticast(addr)
}

// IsManycastFor additionally accepts an interface's directed broadcast
// address.
func IsManycastFor(addr, ifaceBroadcast uint32) bool {
	return IsManycast(addr) || (ifaceBroadcast != 0 && addr == ifaceBroadcast)
}
