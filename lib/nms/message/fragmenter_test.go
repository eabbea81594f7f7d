package message

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func collect(t *testing.T, f *Fragmenter) []Fragment {
	t.Helper()
	var out []Fragment
	for {
		frag, ok := f.Next()
		if !ok {
			return out
		}
		out = append(out, frag)
	}
}

func TestFragmenter_3000BytesIn512Chunks(t *testing.T) {
	data := bytes.Repeat([]byte{0xA5}, 3000)
	f, err := NewFragmenter(512, nil, data)
	require.NoError(t, err)
	assert.Equal(t, 6, f.Count())

	frags := collect(t, f)
	require.Len(t, frags, 6)
	assert.Equal(t, ChunkStart, frags[0].Type)
	for _, frag := range frags[1:5] {
		assert.Equal(t, ChunkInter, frag.Type)
		assert.Equal(t, 512, frag.Len())
	}
	assert.Equal(t, ChunkEnd, frags[5].Type)
	assert.Equal(t, 3000-5*512, frags[5].Len())
}

func TestFragmenter_BoundaryChunkCarriesBoth(t *testing.T) {
	meta := []byte("0123456789")
	data := []byte("abcdefghij")
	f, err := NewFragmenter(8, meta, data)
	require.NoError(t, err)

	frags := collect(t, f)
	require.Len(t, frags, 3)
	assert.Equal(t, []byte("01234567"), frags[0].Metadata)
	assert.Nil(t, frags[0].Data)
	assert.Equal(t, []byte("89"), frags[1].Metadata)
	assert.Equal(t, []byte("abcdef"), frags[1].Data)
	assert.Nil(t, frags[2].Metadata)
	assert.Equal(t, []byte("ghij"), frags[2].Data)
	assert.Equal(t, ChunkEnd, frags[2].Type)
}

func TestFragmenter_ExhaustedStaysExhausted(t *testing.T) {
	f, err := NewFragmenter(4, nil, []byte("abcd1234"))
	require.NoError(t, err)
	collect(t, f)
	_, ok := f.Next()
	assert.False(t, ok)
	assert.Equal(t, 0, f.Remaining())
}

func TestFragmenter_EmptyPayload(t *testing.T) {
	f, err := NewFragmenter(16, nil, nil)
	require.NoError(t, err)
	_, ok := f.Next()
	assert.False(t, ok)
	assert.True(t, Fits(16, 0, 0))
}

func TestFragmenter_InvalidChunkSize(t *testing.T) {
	_, err := NewFragmenter(0, nil, []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidChunkSize)
}

func TestFits(t *testing.T) {
	assert.True(t, Fits(512, 12, 500))
	assert.False(t, Fits(512, 12, 501))
}

// TestFragmenter_Concatenation_Property verifies that joining every
// fragment's metadata and data reproduces the inputs, that metadata never
// follows data, and that chunk types follow Start, Inter*, End.
func TestFragmenter_Concatenation_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chunk := rapid.IntRange(1, 64).Draw(t, "chunk")
		meta := rapid.SliceOfN(rapid.Byte(), 0, 200).Draw(t, "meta")
		data := rapid.SliceOfN(rapid.Byte(), 0, 400).Draw(t, "data")

		f, err := NewFragmenter(chunk, meta, data)
		if err != nil {
			t.Fatal(err)
		}

		var gotMeta, gotData []byte
		var frags []Fragment
		seenData := false
		for {
			frag, ok := f.Next()
			if !ok {
				break
			}
			if frag.Len() == 0 || frag.Len() > chunk {
				t.Fatalf("fragment length %d outside (0, %d]", frag.Len(), chunk)
			}
			if seenData && len(frag.Metadata) > 0 {
				t.Fatalf("metadata emitted after data")
			}
			if len(frag.Data) > 0 {
				seenData = true
			}
			gotMeta = append(gotMeta, frag.Metadata...)
			gotData = append(gotData, frag.Data...)
			frags = append(frags, frag)
		}

		if !bytes.Equal(gotMeta, meta) || !bytes.Equal(gotData, data) {
			t.Fatalf("reassembled payload differs from input")
		}
		if len(frags) != f.Count() {
			t.Fatalf("Count() = %d, produced %d", f.Count(), len(frags))
		}
		if len(frags) > 1 {
			if frags[0].Type != ChunkStart || frags[len(frags)-1].Type != ChunkEnd {
				t.Fatalf("train must begin with Start and finish with End")
			}
			for _, frag := range frags[1 : len(frags)-1] {
				if frag.Type != ChunkInter {
					t.Fatalf("interior fragment typed %s", frag.Type)
				}
			}
		}
	})
}
