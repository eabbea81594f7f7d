// Package message implements the NMS wire unit: the NetworkMessage header
// codec, chunk classification of fragment trains, and the Fragmenter that
// splits an oversized metadata+data payload into MTU-sized chunks.
//
// # Wire Format
//
// Every message starts with a 20-byte fixed header. Version 2 messages append
// a 7-byte extension carrying the sender's outgoing queue length, the number
// of metadata bytes in the body and a CRC-32 checksum:
//
//	[0]      version (high nibble) | flags (low nibble)
//	[1-2]    total length
//	[3]      msgType
//	[4-7]    source address
//	[8-11]   destination address
//	[12-13]  session id
//	[14-15]  message id
//	[16]     hop count
//	[17]     ttl
//	[18]     chunk type
//	[19]     reliable
//	[20]     outgoing queue length  (v2)
//	[21-22]  metadata length        (v2)
//	[23-26]  checksum               (v2)
//
// All multi-byte fields are big-endian.
//
// # Fragmentation
//
// A logical message whose metadata and data do not fit into a single chunk
// is emitted as a train Start, Inter*, End with consecutive message ids.
// Metadata bytes always precede data bytes across the train.
package message
