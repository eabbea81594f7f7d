// Package monotonic provides the adjustable clock used for every protocol
// timestamp in the message service.
//
// Go's time.Now() carries a monotonic reading, so durations computed from two
// Clock.Now() values (last-send time, last-heard time, SAck aggregation
// windows) are immune to wall clock jumps. The offset lets tests and the
// retransmission code paths be exercised deterministically:
//
//	clock := monotonic.NewClock()
//	sentAt := clock.Now()
//	clock.Advance(2 * time.Second)
//	clock.Since(sentAt) // 2s
package monotonic
