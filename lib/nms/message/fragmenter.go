package message

// Fragment is one chunk produced by a Fragmenter. Metadata and Data alias
// the buffers the Fragmenter was built from.
type Fragment struct {
	Metadata []byte
	Data     []byte
	Type     ChunkType
}

// Len returns the number of payload bytes in the fragment.
func (f Fragment) Len() int {
	return len(f.Metadata) + len(f.Data)
}

// Fragmenter walks the virtual concatenation metadata||data in chunks of at
// most maxChunk bytes. It is single-use: once exhausted it stays exhausted.
type Fragmenter struct {
	maxChunk int
	metadata []byte
	data     []byte
	offset   int
}

// NewFragmenter creates a Fragmenter over metadata and data.
func NewFragmenter(maxChunk int, metadata, data []byte) (*Fragmenter, error) {
	if maxChunk <= 0 {
		return nil, ErrInvalidChunkSize
	}
	return &Fragmenter{
		maxChunk: maxChunk,
		metadata: metadata,
		data:     data,
	}, nil
}

// Fits reports whether a payload can travel as a single Complete message.
func Fits(maxChunk, metadataLen, dataLen int) bool {
	return metadataLen+dataLen <= maxChunk
}

// Total returns the number of payload bytes the Fragmenter covers.
func (f *Fragmenter) Total() int {
	return len(f.metadata) + len(f.data)
}

// Remaining returns the number of payload bytes not yet produced.
func (f *Fragmenter) Remaining() int {
	return f.Total() - f.offset
}

// Count returns how many fragments the full train has.
func (f *Fragmenter) Count() int {
	total := f.Total()
	if total == 0 {
		return 0
	}
	return (total + f.maxChunk - 1) / f.maxChunk
}

// Next produces the next fragment. The second return value is false once
// every byte has been emitted.
func (f *Fragmenter) Next() (Fragment, bool) {
	total := f.Total()
	if f.offset >= total {
		return Fragment{}, false
	}

	start := f.offset
	end := start + f.maxChunk
	if end > total {
		end = total
	}

	var frag Fragment
	metaLen := len(f.metadata)
	if start < metaLen {
		metaEnd := end
		if metaEnd > metaLen {
			metaEnd = metaLen
		}
		frag.Metadata = f.metadata[start:metaEnd]
	}
	if end > metaLen {
		dataStart := start - metaLen
		if dataStart < 0 {
			dataStart = 0
		}
		frag.Data = f.data[dataStart : end-metaLen]
	}

	switch {
	case start == 0:
		frag.Type = ChunkStart
	case end == total:
		frag.Type = ChunkEnd
	default:
		frag.Type = ChunkInter
	}

	f.offset = end
	return frag, true
}
