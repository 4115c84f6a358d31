// Package testkit holds the conformance suite every snapshot.Store backend
// must pass.
package testkit

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/pngme/cidutil"
	"xdao.co/pngme/png"
	"xdao.co/pngme/snapshot"
)

// NewStore constructs a fresh, empty store for a test.
// The returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) snapshot.Store

// SamplePNG returns a small well-formed PNG datastream whose bytes depend on label.
func SamplePNG(label string) []byte {
	p := png.FromChunks([]png.Chunk{
		png.NewChunk(png.MustChunkType("IHDR"), []byte{0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0}),
		png.NewChunk(png.MustChunkType("tEXt"), []byte("Comment\x00"+label)),
		png.NewChunk(png.MustChunkType(png.EndChunkType), nil),
	})
	return p.Bytes()
}

func RunConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := SamplePNG("round trip")

		id, err := s.Put(want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := cidutil.Of(want)
		if err != nil {
			t.Fatalf("cidutil.Of failed: %v", err)
		}
		if id != wantID {
			t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
		}

		got, err := s.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := SamplePNG("same bytes")

		id1, err := s.Put(b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := s.Put(b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		b := SamplePNG("missing")
		id, err := cidutil.Of(b)
		if err != nil {
			t.Fatalf("cidutil.Of failed: %v", err)
		}

		if s.Has(id) {
			t.Fatalf("Has returned true for missing CID")
		}
		if _, err := s.Get(id); !snapshot.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err := s.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !s.Has(id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectNonPNG", func(t *testing.T) {
		s := newStore(t)
		for _, b := range [][]byte{nil, []byte("not a png"), SamplePNG("x")[:20]} {
			if _, err := s.Put(b); !errors.Is(err, snapshot.ErrNotPNG) {
				t.Fatalf("Put(%d bytes): got %v want ErrNotPNG", len(b), err)
			}
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		s := newStore(t)
		var undef cid.Cid
		if s.Has(undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := s.Get(undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})
}
