// Package iface defines the network interfaces the NMS service sends and
// receives raw network messages through.
//
// # Implementations
//
//   - MemoryInterface: attached to an in-process Hub that models one
//     broadcast domain. Used by tests and simulations, with an optional
//     drop hook for loss injection.
//   - UDPInterface: one IPv4 UDP socket. Manycast destinations go to the
//     configured multicast group or broadcast address; unicast
//     destinations go to the peer address on the same port.
//
// # Receiving
//
// Both implementations hand every datagram to a Receiver from their Serve
// loop, together with the interface it arrived on and the sender address.
// Serve blocks until its context is cancelled or the interface is closed.
package iface
