// Package reassembler buffers received unicast messages per source address,
// merges fragment trains back into Complete messages and keeps the
// selective-acknowledgment state that the service reports to each sender.
//
// Each source owns two queues: one for reliable traffic, backed by a
// sack.Tracker, and one for unreliable traffic, backed by a sack.Window.
// A session id change on either queue discards what it holds and restarts
// tracking at the new message's id.
//
// In Sequenced mode a reliable message is released only once every earlier
// message id of the session has arrived. In Permissive mode any completed
// message is released, and incomplete trains are skipped over.
package reassembler
