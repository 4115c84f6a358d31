// Package png parses, edits and re-encodes PNG datastreams at the chunk level.
//
// It never decodes image data. A Png is an ordered list of chunks that can
// be searched, appended to and removed from by type tag, then serialized
// back to bytes identical in layout to what was parsed.
package png

import (
	"bytes"
	"strings"
)

// Signature is the fixed 8-byte prefix of every PNG datastream.
var Signature = [8]byte{137, 80, 78, 71, 13, 10, 26, 10}

// Png is an ordered sequence of chunks following the PNG signature.
//
// Order is significant and duplicate chunk types are allowed, so lookups scan
// the sequence linearly rather than indexing by type.
type Png struct {
	chunks []Chunk
}

// Parse decodes a complete PNG datastream.
//
// After the signature, chunks are decoded back to back until b is exhausted.
// The first malformed chunk aborts the parse; its error keeps the chunk-level
// Kind and RuleID.
func Parse(b []byte) (*Png, error) {
	if len(b) < len(Signature) {
		return nil, newErrorf(KindInvalidSignature, "PNG-SIG-001",
			"input too short for PNG signature: %d bytes", len(b))
	}
	if !bytes.Equal(b[:len(Signature)], Signature[:]) {
		return nil, newErrorf(KindInvalidSignature, "PNG-SIG-002",
			"invalid PNG signature % x", b[:len(Signature)])
	}

	p := &Png{}
	off := len(Signature)
	for off < len(b) {
		c, err := ParseChunk(b[off:])
		if err != nil {
			return nil, locate(err, len(p.chunks), off)
		}
		p.chunks = append(p.chunks, c)
		off += c.EncodedLen()
	}
	return p, nil
}

// Check reports whether b parses as a PNG datastream.
func Check(b []byte) error {
	_, err := Parse(b)
	return err
}

// FromChunks builds a Png from chunks in the given order.
func FromChunks(chunks []Chunk) *Png {
	return &Png{chunks: append([]Chunk(nil), chunks...)}
}

// AppendChunk adds c at the end of the sequence.
//
// No structural check is made: appending after IEND is allowed. See Embed for
// the insertion that keeps IEND last.
func (p *Png) AppendChunk(c Chunk) {
	p.chunks = append(p.chunks, c)
}

// RemoveChunk removes and returns the first chunk whose type is chunkType.
// Later chunks of the same type are left in place.
func (p *Png) RemoveChunk(chunkType string) (Chunk, error) {
	i := p.index(chunkType)
	if i < 0 {
		return Chunk{}, newErrorf(KindChunkNotFound, "PNG-LOOKUP-001", "chunk type %q not found", chunkType)
	}
	c := p.chunks[i]
	p.chunks = append(p.chunks[:i:i], p.chunks[i+1:]...)
	return c, nil
}

// ChunkByType returns the first chunk whose type is chunkType.
func (p *Png) ChunkByType(chunkType string) (Chunk, bool) {
	i := p.index(chunkType)
	if i < 0 {
		return Chunk{}, false
	}
	return p.chunks[i], true
}

// ChunksByType returns every chunk whose type is chunkType, in order.
func (p *Png) ChunksByType(chunkType string) []Chunk {
	var out []Chunk
	for _, c := range p.chunks {
		if c.typ.String() == chunkType {
			out = append(out, c)
		}
	}
	return out
}

// Chunks returns the chunk sequence in order.
func (p *Png) Chunks() []Chunk {
	return append([]Chunk(nil), p.chunks...)
}

func (p *Png) Len() int { return len(p.chunks) }

// Bytes encodes the signature followed by every chunk. It is the inverse of Parse.
func (p *Png) Bytes() []byte {
	n := len(Signature)
	for _, c := range p.chunks {
		n += c.EncodedLen()
	}
	out := make([]byte, 0, n)
	out = append(out, Signature[:]...)
	for _, c := range p.chunks {
		out = c.appendTo(out)
	}
	return out
}

// String concatenates the diagnostic dump of every chunk.
func (p *Png) String() string {
	var sb strings.Builder
	for _, c := range p.chunks {
		sb.WriteString(c.String())
	}
	return sb.String()
}

func (p *Png) index(chunkType string) int {
	for i, c := range p.chunks {
		if c.typ.String() == chunkType {
			return i
		}
	}
	return -1
}
