// Package snapshot keeps immutable copies of PNG files taken before pngme
// rewrites them, keyed by content identifier.
package snapshot

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/pngme/png"
)

// Store is a content-addressed store of PNG snapshots.
//
// Contract:
// - Put MUST be idempotent.
// - Stored snapshots MUST be immutable.
// - CIDs MUST be derived from the bytes written (see cidutil.Of).
// - Put MUST reject bytes that do not parse as a PNG with ErrNotPNG.
// - Get MUST return ErrNotFound when the CID is absent.
type Store interface {
	Put(data []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// Check validates that b is a complete PNG datastream.
// Backends call it before persisting anything.
func Check(b []byte) error {
	if err := png.Check(b); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPNG, err)
	}
	return nil
}
