package sack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalParse(t *testing.T) {
	in := SAck{
		Cumulative: 65530,
		Ranges:     []Range{{Start: 65533, End: 65535}, {Start: 2, End: 4}},
	}
	raw, err := in.MarshalBinary(64)
	require.NoError(t, err)
	assert.Len(t, raw, 2+2*4)

	out, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestMarshalTruncatesRanges(t *testing.T) {
	in := SAck{
		Cumulative: 10,
		Ranges:     []Range{{12, 12}, {14, 15}, {20, 22}},
	}
	raw, err := in.MarshalBinary(2 + 4*2 + 3)
	require.NoError(t, err)

	out, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, []Range{{12, 12}, {14, 15}}, out.Ranges)

	_, err = in.MarshalBinary(1)
	assert.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte{0x01})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Parse([]byte{0, 1, 0, 5, 0})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Parse([]byte{0, 1, 0, 9, 0, 5})
	assert.ErrorIs(t, err, ErrMalformed, "end before start")
}

func TestCovers(t *testing.T) {
	s := SAck{Cumulative: 5, Ranges: []Range{{8, 9}}}
	assert.True(t, s.Covers(5))
	assert.True(t, s.Covers(65535), "behind cumulative across the wrap")
	assert.False(t, s.Covers(6))
	assert.True(t, s.Covers(8))
	assert.True(t, s.Covers(9))
	assert.False(t, s.Covers(10))
	assert.True(t, s.CoveredByRange(9))
	assert.False(t, s.CoveredByCumulative(9))
}
