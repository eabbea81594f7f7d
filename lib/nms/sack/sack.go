package sack

import (
	"encoding/binary"

	"github.com/go-i2p/go-nms/lib/util/seqarith"
	"github.com/samber/oops"
)

var (
	ErrMalformed      = oops.New("malformed SAck payload")
	ErrBufferTooSmall = oops.New("SAck buffer too small for cumulative TSN")
	ErrOutOfWindow    = oops.New("message id outside the tracked window")
)

const (
	cumulativeLen = 2
	rangeLen      = 4
)

// Range is an inclusive run of received message ids.
type Range struct {
	Start uint16
	End   uint16
}

// Contains reports whether id falls inside the range.
func (r Range) Contains(id uint16) bool {
	return seqarith.GreaterThanOrEqual(id, r.Start) && seqarith.LessThanOrEqual(id, r.End)
}

// SAck is a decoded selective acknowledgment.
type SAck struct {
	Cumulative uint16
	Ranges     []Range
}

// Covers reports whether id is acknowledged by the cumulative TSN or one of
// the ranges.
func (s SAck) Covers(id uint16) bool {
	if seqarith.LessThanOrEqual(id, s.Cumulative) {
		return true
	}
	for _, r := range s.Ranges {
		if r.Contains(id) {
			return true
		}
	}
	return false
}

// CoveredByCumulative reports whether id is at or behind the cumulative TSN.
func (s SAck) CoveredByCumulative(id uint16) bool {
	return seqarith.LessThanOrEqual(id, s.Cumulative)
}

// CoveredByRange reports whether one of the ranges contains id.
func (s SAck) CoveredByRange(id uint16) bool {
	for _, r := range s.Ranges {
		if r.Contains(id) {
			return true
		}
	}
	return false
}

// MarshalBinary encodes the SAck into at most maxLen bytes. Ranges that do
// not fit are dropped from the tail; the ones nearest the cumulative TSN are
// the most useful to the sender.
func (s SAck) MarshalBinary(maxLen int) ([]byte, error) {
	if maxLen < cumulativeLen {
		return nil, ErrBufferTooSmall
	}
	n := len(s.Ranges)
	if fit := (maxLen - cumulativeLen) / rangeLen; n > fit {
		n = fit
	}

	buf := make([]byte, cumulativeLen+n*rangeLen)
	binary.BigEndian.PutUint16(buf, s.Cumulative)
	off := cumulativeLen
	for _, r := range s.Ranges[:n] {
		binary.BigEndian.PutUint16(buf[off:], r.Start)
		binary.BigEndian.PutUint16(buf[off+2:], r.End)
		off += rangeLen
	}
	return buf, nil
}

// Parse decodes a SAck payload.
func Parse(payload []byte) (SAck, error) {
	if len(payload) < cumulativeLen || (len(payload)-cumulativeLen)%rangeLen != 0 {
		return SAck{}, ErrMalformed
	}
	s := SAck{Cumulative: binary.BigEndian.Uint16(payload)}
	for off := cumulativeLen; off < len(payload); off += rangeLen {
		r := Range{
			Start: binary.BigEndian.Uint16(payload[off:]),
			End:   binary.BigEndian.Uint16(payload[off+2:]),
		}
		if !seqarith.LessThanOrEqual(r.Start, r.End) {
			return SAck{}, oops.Wrapf(ErrMalformed, "range end %d before start %d", r.End, r.Start)
		}
		s.Ranges = append(s.Ranges, r)
	}
	return s, nil
}
