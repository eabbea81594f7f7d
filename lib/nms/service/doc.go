// Package service implements the network message service: fragmenting and
// sending application messages over one or more interfaces, acknowledging
// and retransmitting reliable unicast traffic with selective
// acknowledgments, suppressing duplicate manycast traffic, and handing
// reassembled messages to registered listeners.
//
// # Outbound
//
// TransmitMessage checksums the payload, optionally encrypts it with the
// group key, splits it into chunks that fit the smallest MTU of the chosen
// interfaces and sends every chunk. Reliable chunks are kept in a
// per-destination table until a SAck covers them or their retransmission
// budget is spent. BroadcastMessage sends a single unfragmented unreliable
// message to a broadcast or multicast address.
//
// # Inbound
//
// MessageArrived is the entry point for interfaces (it implements
// iface.Receiver). Unicast messages go through the reassembler and are
// acknowledged; manycast messages are de-duplicated per source and
// rebroadcast while their hop count is below their TTL.
//
// # Background work
//
// Start launches the housekeeping loop, which sends outstanding SAcks every
// cycle and resends overdue reliable messages every RetransmitCycles
// cycles, and, in async delivery mode, the delivery worker.
package service
