package message

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleParams() Params {
	return Params{
		MsgType:     7,
		ChunkType:   ChunkComplete,
		SourceAddr:  0x0A000001,
		DestAddr:    0x0A000002,
		SessionID:   0xBEEF,
		MsgID:       65535,
		HopCount:    1,
		TTL:         3,
		Checksummed: true,
		Checksum:    0xDEADBEEF,
		QueueLength: 9,
		Metadata:    []byte("meta"),
		Data:        []byte("payload bytes"),
	}
}

func TestMarshalParseV2(t *testing.T) {
	m, err := NewReliable(sampleParams())
	require.NoError(t, err)

	raw, err := m.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, raw, HeaderLenV2+4+13)
	assert.Equal(t, uint8(Version2<<4|FlagChecksummed), raw[0])
	assert.Equal(t, uint16(len(raw)), binary.BigEndian.Uint16(raw[1:3]))
	assert.Equal(t, uint8(1), raw[19], "reliable byte")

	parsed, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

func TestParseVersion1HasNoExtension(t *testing.T) {
	raw := make([]byte, FixedHeaderLen+3)
	raw[0] = Version1 << 4
	binary.BigEndian.PutUint16(raw[1:], uint16(len(raw)))
	raw[3] = 2
	binary.BigEndian.PutUint16(raw[14:], 42)
	raw[17] = 1
	raw[18] = uint8(ChunkComplete)
	copy(raw[FixedHeaderLen:], "abc")

	m, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, Version1, m.Version)
	assert.Equal(t, uint16(42), m.MsgID)
	assert.Nil(t, m.Metadata)
	assert.Equal(t, []byte("abc"), m.Data)
	assert.False(t, m.Checksummed)
}

func TestParseErrors(t *testing.T) {
	m, err := New(sampleParams())
	require.NoError(t, err)
	raw, err := m.MarshalBinary()
	require.NoError(t, err)

	_, err = Parse(raw[:10])
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Parse(raw[:len(raw)-1])
	assert.ErrorIs(t, err, ErrBadLength)

	bad := append([]byte(nil), raw...)
	bad[0] = 9 << 4
	_, err = Parse(bad)
	assert.ErrorIs(t, err, ErrBadVersion)

	bad = append([]byte(nil), raw...)
	bad[18] = 0x7F
	_, err = Parse(bad)
	assert.ErrorIs(t, err, ErrBadChunkType)

	bad = append([]byte(nil), raw...)
	binary.BigEndian.PutUint16(bad[21:], 0xFFF0)
	_, err = Parse(bad)
	assert.ErrorIs(t, err, ErrBadMetadataLen)
}

func TestNewValidates(t *testing.T) {
	p := sampleParams()
	p.HopCount = 4
	_, err := New(p)
	assert.ErrorIs(t, err, ErrHopCountTTL)

	p = sampleParams()
	p.ChunkType = ChunkType(12)
	_, err = New(p)
	assert.ErrorIs(t, err, ErrBadChunkType)

	p = sampleParams()
	p.Data = make([]byte, MaxMessageLen)
	_, err = New(p)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCloneIsDeep(t *testing.T) {
	m, err := New(sampleParams())
	require.NoError(t, err)

	c := m.Clone()
	c.Data[0] = 'X'
	c.Metadata[0] = 'Y'
	assert.Equal(t, byte('p'), m.Data[0])
	assert.Equal(t, byte('m'), m.Metadata[0])
}

func TestCanForward(t *testing.T) {
	m := &NetworkMessage{HopCount: 2, TTL: 2}
	assert.False(t, m.CanForward())
	m.HopCount = 1
	assert.True(t, m.CanForward())
}

func TestChecksumCoversConcatenation(t *testing.T) {
	assert.Equal(t, Checksum([]byte("ab"), []byte("cd")), Checksum(nil, []byte("abcd")))
	assert.NotEqual(t, Checksum(nil, []byte("abcd")), Checksum(nil, []byte("abce")))
}

func TestAddrHelpers(t *testing.T) {
	addr, err := ParseAddr("10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0A000007), addr)
	assert.Equal(t, "10.0.0.7", AddrString(addr))

	_, err = ParseAddr("not-an-ip")
	assert.ErrorIs(t, err, ErrBadAddress)

	group, _ := ParseAddr("239.1.2.3")
	assert.True(t, IsManycast(group))
	assert.True(t, IsManycast(BroadcastAddr))
	assert.False(t, IsManycast(addr))

	subnetBcast, _ := ParseAddr("10.0.0.255")
	assert.True(t, IsManycastFor(subnetBcast, subnetBcast))
	assert.False(t, IsManycastFor(subnetBcast, 0))
}

func TestChunkTypeString(t *testing.T) {
	assert.Equal(t, "Start", ChunkStart.String())
	assert.Equal(t, "SAck", ChunkSAck.String())
	assert.Equal(t, "Unknown(9)", ChunkType(9).String())
	assert.True(t, ChunkInter.IsFragment())
	assert.False(t, ChunkComplete.IsFragment())
}
