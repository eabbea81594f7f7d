// Package sack implements the selective-acknowledgment payload carried by
// ChunkSAck messages and the per-source tracker that produces it.
//
// A SAck names a cumulative TSN (every message id up to and including it
// has been received) followed by inclusive ranges of ids received beyond
// the cumulative point:
//
//	[0-1]  cumulative TSN
//	[2-3]  range 1 start
//	[4-5]  range 1 end
//	...
//
// All fields are big-endian uint16. Comparisons use seqarith, so ranges may
// straddle the 16-bit wrap.
package sack
