package png

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
	"unicode/utf8"
)

const (
	lengthSize = 4
	typeSize   = 4
	crcSize    = 4

	// chunkOverhead is the encoded size of a chunk with an empty payload.
	chunkOverhead = lengthSize + typeSize + crcSize
)

// Chunk is one length/type/data/crc record of a PNG datastream.
//
// A Chunk's CRC is always consistent with its type and data: it is computed
// by NewChunk and verified by ParseChunk, and there is no way to set it.
type Chunk struct {
	typ  ChunkType
	data []byte
	crc  uint32
}

// NewChunk builds a chunk from a type and payload. The payload is copied.
func NewChunk(t ChunkType, data []byte) Chunk {
	d := bytes.Clone(data)
	if d == nil {
		d = []byte{}
	}
	return Chunk{typ: t, data: d, crc: Checksum(t, d)}
}

// Checksum returns the CRC-32 (ISO-HDLC, as used by PNG and zlib) of the
// type bytes followed by data.
func Checksum(t ChunkType, data []byte) uint32 {
	crc := crc32.Update(0, crc32.IEEETable, t.b[:])
	return crc32.Update(crc, crc32.IEEETable, data)
}

// ParseChunk decodes the chunk at the start of b.
//
// The layout is a 4-byte big-endian length, the 4-byte type, length bytes of
// data and a 4-byte big-endian CRC over type and data. Bytes past the CRC are
// ignored; use EncodedLen to advance past the chunk.
func ParseChunk(b []byte) (Chunk, error) {
	if len(b) < lengthSize+typeSize {
		return Chunk{}, newErrorf(KindTruncatedInput, "PNG-CHUNK-001",
			"truncated chunk header: need %d bytes, have %d", lengthSize+typeSize, len(b))
	}
	off := 0
	length := binary.BigEndian.Uint32(b[off:])
	off += lengthSize

	var tb [4]byte
	copy(tb[:], b[off:off+typeSize])
	t, err := NewChunkType(tb)
	if err != nil {
		return Chunk{}, err
	}
	off += typeSize

	need := uint64(chunkOverhead) + uint64(length)
	if uint64(len(b)) < need {
		return Chunk{}, newErrorf(KindTruncatedInput, "PNG-CHUNK-002",
			"truncated %s chunk: length field declares %d data bytes, need %d bytes total, have %d",
			t, length, need, len(b))
	}
	data := bytes.Clone(b[off : off+int(length)])
	off += int(length)

	stored := binary.BigEndian.Uint32(b[off:])
	if got := Checksum(t, data); got != stored {
		return Chunk{}, newErrorf(KindChecksumMismatch, "PNG-CRC-001",
			"%s chunk checksum mismatch: stored %d, computed %d", t, stored, got)
	}
	return Chunk{typ: t, data: data, crc: stored}, nil
}

// Length is the number of payload bytes.
func (c Chunk) Length() uint32 { return uint32(len(c.data)) }

func (c Chunk) Type() ChunkType { return c.typ }

// Data returns a copy of the payload.
func (c Chunk) Data() []byte { return bytes.Clone(c.data) }

func (c Chunk) CRC() uint32 { return c.crc }

// EncodedLen is the number of bytes Bytes produces.
func (c Chunk) EncodedLen() int { return chunkOverhead + len(c.data) }

// Text returns the payload decoded as UTF-8.
func (c Chunk) Text() (string, error) {
	if !utf8.Valid(c.data) {
		return "", newErrorf(KindInvalidUTF8, "PNG-TEXT-001", "%s chunk data is not valid UTF-8", c.typ)
	}
	return string(c.data), nil
}

// Bytes encodes the chunk. It is the inverse of ParseChunk.
func (c Chunk) Bytes() []byte {
	out := make([]byte, 0, c.EncodedLen())
	return c.appendTo(out)
}

func (c Chunk) appendTo(out []byte) []byte {
	out = binary.BigEndian.AppendUint32(out, c.Length())
	out = append(out, c.typ.b[:]...)
	out = append(out, c.data...)
	return binary.BigEndian.AppendUint32(out, c.crc)
}

// Equal reports whether both chunks have the same type, payload and CRC.
func (c Chunk) Equal(o Chunk) bool {
	return c.typ == o.typ && c.crc == o.crc && bytes.Equal(c.data, o.data)
}

// String renders a multi-line diagnostic dump of the chunk.
func (c Chunk) String() string {
	var sb strings.Builder
	sb.WriteString("Chunk {\n")
	fmt.Fprintf(&sb, "  length: %d\n", c.Length())
	fmt.Fprintf(&sb, "  chunk_type: %s\n", c.typ)
	fmt.Fprintf(&sb, "  chunk_data: %d bytes\n", len(c.data))
	fmt.Fprintf(&sb, "  crc: %d\n", c.crc)
	sb.WriteString("}\n")
	return sb.String()
}
