package png

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

const (
	secretMessage = "This is where your secret message will be!"
	secretCRC     = uint32(2882656334)
)

func rawChunk(length uint32, tag string, data []byte, crc uint32) []byte {
	out := binary.BigEndian.AppendUint32(nil, length)
	out = append(out, tag...)
	out = append(out, data...)
	return binary.BigEndian.AppendUint32(out, crc)
}

func testingChunk(t *testing.T) Chunk {
	t.Helper()
	c, err := ParseChunk(rawChunk(42, "RuSt", []byte(secretMessage), secretCRC))
	if err != nil {
		t.Fatalf("ParseChunk: %v", err)
	}
	return c
}

func TestNewChunk(t *testing.T) {
	c := NewChunk(MustChunkType("RuSt"), []byte(secretMessage))
	if c.Length() != 42 {
		t.Fatalf("Length: got %d want 42", c.Length())
	}
	if c.CRC() != secretCRC {
		t.Fatalf("CRC: got %d want %d", c.CRC(), secretCRC)
	}
}

func TestNewChunkCopiesData(t *testing.T) {
	data := []byte("mutable")
	c := NewChunk(MustChunkType("RuSt"), data)
	data[0] = 'M'
	if got := string(c.Data()); got != "mutable" {
		t.Fatalf("chunk data changed with caller's slice: %q", got)
	}

	view := c.Data()
	view[0] = 'X'
	if got := string(c.Data()); got != "mutable" {
		t.Fatalf("chunk data changed through Data(): %q", got)
	}
	if c.CRC() != Checksum(c.Type(), []byte("mutable")) {
		t.Fatalf("CRC no longer matches content")
	}
}

func TestNewChunkEmptyData(t *testing.T) {
	c := NewChunk(MustChunkType("IEND"), nil)
	if c.Length() != 0 {
		t.Fatalf("Length: got %d want 0", c.Length())
	}
	// Well-known CRC of an empty IEND chunk.
	if c.CRC() != 0xAE426082 {
		t.Fatalf("CRC: got %#x want 0xae426082", c.CRC())
	}
	if c.EncodedLen() != 12 {
		t.Fatalf("EncodedLen: got %d want 12", c.EncodedLen())
	}
}

func TestParseValidChunk(t *testing.T) {
	c := testingChunk(t)
	if c.Length() != 42 {
		t.Errorf("Length: got %d want 42", c.Length())
	}
	if got := c.Type().String(); got != "RuSt" {
		t.Errorf("Type: got %q want RuSt", got)
	}
	text, err := c.Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != secretMessage {
		t.Errorf("Text: got %q want %q", text, secretMessage)
	}
	if c.CRC() != secretCRC {
		t.Errorf("CRC: got %d want %d", c.CRC(), secretCRC)
	}
}

func TestParseChunkChecksumMismatch(t *testing.T) {
	_, err := ParseChunk(rawChunk(42, "RuSt", []byte(secretMessage), 2882656333))
	if err == nil {
		t.Fatalf("expected error")
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected structured *png.Error, got %T", err)
	}
	if e.Kind != KindChecksumMismatch {
		t.Fatalf("expected KindChecksumMismatch, got %s", e.Kind)
	}
	if e.RuleID != "PNG-CRC-001" {
		t.Fatalf("expected RuleID PNG-CRC-001, got %s", e.RuleID)
	}
}

func TestParseChunkDetectsEveryFlippedBit(t *testing.T) {
	raw := rawChunk(42, "RuSt", []byte(secretMessage), secretCRC)
	crcStart := len(raw) - 4
	dataStart := 8

	// Every bit of the stored CRC and the payload.
	for i := dataStart; i < len(raw); i++ {
		for bit := 0; bit < 8; bit++ {
			b := append([]byte(nil), raw...)
			b[i] ^= 1 << bit
			_, err := ParseChunk(b)
			if !IsKind(err, KindChecksumMismatch) {
				where := "data"
				if i >= crcStart {
					where = "crc"
				}
				t.Fatalf("flip %s byte %d bit %d: got %v, want ChecksumMismatch", where, i, bit, err)
			}
		}
	}

	// Toggling the case bit keeps the tag alphabetic, so only the CRC catches it.
	for i := 4; i < 8; i++ {
		b := append([]byte(nil), raw...)
		b[i] ^= 1 << 5
		if _, err := ParseChunk(b); !IsKind(err, KindChecksumMismatch) {
			t.Fatalf("flip case of type byte %d: got %v, want ChecksumMismatch", i-4, err)
		}
	}
}

func TestParseChunkInvalidType(t *testing.T) {
	_, err := ParseChunk(rawChunk(3, "Ru1t", []byte("abc"), 0))
	if !IsKind(err, KindInvalidTag) {
		t.Fatalf("got %v, want InvalidTag", err)
	}
}

func TestParseChunkTruncated(t *testing.T) {
	raw := rawChunk(42, "RuSt", []byte(secretMessage), secretCRC)
	tests := []struct {
		name   string
		input  []byte
		ruleID string
	}{
		{name: "empty", input: nil, ruleID: "PNG-CHUNK-001"},
		{name: "partial header", input: raw[:7], ruleID: "PNG-CHUNK-001"},
		{name: "header only", input: raw[:8], ruleID: "PNG-CHUNK-002"},
		{name: "partial data", input: raw[:30], ruleID: "PNG-CHUNK-002"},
		{name: "missing crc byte", input: raw[:len(raw)-1], ruleID: "PNG-CHUNK-002"},
		{name: "huge length", input: rawChunk(0xFFFFFFFF, "RuSt", nil, 0), ruleID: "PNG-CHUNK-002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChunk(tt.input)
			if !IsKind(err, KindTruncatedInput) {
				t.Fatalf("got %v, want TruncatedInput", err)
			}
			if RuleID(err) != tt.ruleID {
				t.Fatalf("RuleID: got %q want %q", RuleID(err), tt.ruleID)
			}
		})
	}
}

func TestParseChunkIgnoresTrailingBytes(t *testing.T) {
	raw := rawChunk(42, "RuSt", []byte(secretMessage), secretCRC)
	raw = append(raw, "trailing"...)
	c, err := ParseChunk(raw)
	if err != nil {
		t.Fatalf("ParseChunk: %v", err)
	}
	if c.EncodedLen() != len(raw)-len("trailing") {
		t.Fatalf("EncodedLen: got %d want %d", c.EncodedLen(), len(raw)-len("trailing"))
	}
}

func TestChunkRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte("x"),
		[]byte(secretMessage),
		{0x00, 0xff, 0x10, 0x80},
		[]byte(strings.Repeat("a", 70000)),
	}
	for _, tag := range []string{"RuSt", "IHDR", "tEXt", "zzzz"} {
		for _, data := range payloads {
			orig := NewChunk(MustChunkType(tag), data)
			got, err := ParseChunk(orig.Bytes())
			if err != nil {
				t.Fatalf("%s/%d bytes: ParseChunk: %v", tag, len(data), err)
			}
			if got.Length() != orig.Length() || got.Type() != orig.Type() || got.CRC() != orig.CRC() {
				t.Fatalf("%s/%d bytes: header fields differ after round trip", tag, len(data))
			}
			if !got.Equal(orig) {
				t.Fatalf("%s/%d bytes: chunk differs after round trip", tag, len(data))
			}
		}
	}
}

func TestChunkBytesLayout(t *testing.T) {
	c := NewChunk(MustChunkType("RuSt"), []byte(secretMessage))
	want := rawChunk(42, "RuSt", []byte(secretMessage), secretCRC)
	if string(c.Bytes()) != string(want) {
		t.Fatalf("Bytes:\n got % x\nwant % x", c.Bytes(), want)
	}
}

func TestChunkTextInvalidUTF8(t *testing.T) {
	c := NewChunk(MustChunkType("RuSt"), []byte{0xff, 0xfe, 'a'})
	_, err := c.Text()
	if !IsKind(err, KindInvalidUTF8) {
		t.Fatalf("got %v, want InvalidUtf8", err)
	}
	if RuleID(err) != "PNG-TEXT-001" {
		t.Fatalf("RuleID: got %q", RuleID(err))
	}
}

func TestChunkString(t *testing.T) {
	got := testingChunk(t).String()
	want := "Chunk {\n" +
		"  length: 42\n" +
		"  chunk_type: RuSt\n" +
		"  chunk_data: 42 bytes\n" +
		"  crc: 2882656334\n" +
		"}\n"
	if got != want {
		t.Fatalf("String:\n got %q\nwant %q", got, want)
	}
}
