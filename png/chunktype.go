package png

import "fmt"

// ChunkType is the 4-byte ASCII tag naming a chunk's role.
//
// The case of each letter encodes one property bit (bit 5 of the byte):
// byte 0 ancillary, byte 1 private, byte 2 reserved, byte 3 safe-to-copy.
// The zero value is not a valid ChunkType; construct one with NewChunkType
// or ParseChunkType.
type ChunkType struct {
	b [4]byte
}

const propertyBit = 1 << 5

// NewChunkType validates b and returns it as a ChunkType.
// Every byte must be an ASCII letter.
func NewChunkType(b [4]byte) (ChunkType, error) {
	for i, c := range b {
		if !isLetter(c) {
			return ChunkType{}, newErrorf(KindInvalidTag, "PNG-TAG-001",
				"invalid chunk type %q: byte %d (0x%02x) is not an ASCII letter", string(b[:]), i, c)
		}
	}
	return ChunkType{b: b}, nil
}

// ParseChunkType parses a 4-character tag such as "IEND" or "RuSt".
func ParseChunkType(s string) (ChunkType, error) {
	if len(s) != 4 {
		return ChunkType{}, newErrorf(KindInvalidTag, "PNG-TAG-002",
			"invalid chunk type %q: must be exactly 4 bytes, got %d", s, len(s))
	}
	var b [4]byte
	copy(b[:], s)
	return NewChunkType(b)
}

// MustChunkType is like ParseChunkType but panics on error.
// It is intended for constant tags.
func MustChunkType(s string) ChunkType {
	t, err := ParseChunkType(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t ChunkType) Bytes() [4]byte { return t.b }

// IsCritical reports whether decoders must understand the chunk to display the image.
func (t ChunkType) IsCritical() bool { return t.b[0]&propertyBit == 0 }

// IsPublic reports whether the tag belongs to the registered public set.
func (t ChunkType) IsPublic() bool { return t.b[1]&propertyBit == 0 }

// IsReservedBitValid reports whether the reserved bit is clear, as the
// current PNG version requires.
func (t ChunkType) IsReservedBitValid() bool { return t.b[2]&propertyBit == 0 }

// IsSafeToCopy reports whether editors may copy the chunk into a modified
// image without understanding it.
func (t ChunkType) IsSafeToCopy() bool { return t.b[3]&propertyBit != 0 }

// IsValid reports whether the tag conforms to the current PNG version.
// Only the reserved bit affects validity.
func (t ChunkType) IsValid() bool { return t.IsReservedBitValid() }

func (t ChunkType) String() string { return string(t.b[:]) }

// GoString keeps %#v output readable in test failures.
func (t ChunkType) GoString() string { return fmt.Sprintf("png.ChunkType(%q)", t.String()) }

func isLetter(c byte) bool {
	return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z')
}
