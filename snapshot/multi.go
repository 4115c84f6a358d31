package snapshot

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/pngme/cidutil"
)

// Named associates a Store with the backend id it was configured under.
type Named struct {
	Name  string
	Store Store
}

// Multi combines several stores in a fixed order.
//
// Reads fall back in order. Put writes only to the first store unless
// WriteAll is set, in which case every store must accept the snapshot under
// the same CID.
type Multi struct {
	Stores   []Named
	WriteAll bool
}

var _ Store = Multi{}

func (m Multi) Put(b []byte) (cid.Cid, error) {
	if len(m.Stores) == 0 {
		return cid.Undef, errors.New("snapshot: Multi has no stores")
	}
	if !m.WriteAll {
		return m.Stores[0].Store.Put(b)
	}
	id, _, err := m.PutAll(b)
	return id, err
}

// PutAll writes b to every store and returns the CID each one reported.
func (m Multi) PutAll(b []byte) (cid.Cid, map[string]cid.Cid, error) {
	want, err := cidutil.Of(b)
	if err != nil {
		return cid.Undef, nil, err
	}
	if len(m.Stores) == 0 {
		return cid.Undef, nil, errors.New("snapshot: Multi has no stores")
	}
	out := make(map[string]cid.Cid, len(m.Stores))
	for _, n := range m.Stores {
		if n.Store == nil {
			return cid.Undef, nil, fmt.Errorf("snapshot: nil store for backend %q", n.Name)
		}
		got, err := n.Store.Put(b)
		if err != nil {
			return cid.Undef, out, fmt.Errorf("snapshot: backend %q: %w", n.Name, err)
		}
		out[n.Name] = got
		if got != want {
			return cid.Undef, out, ErrCIDMismatch
		}
	}
	return want, out, nil
}

func (m Multi) Get(id cid.Cid) ([]byte, error) {
	for _, n := range m.Stores {
		if n.Store == nil {
			continue
		}
		b, err := n.Store.Get(id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, fmt.Errorf("snapshot: backend %q: %w", n.Name, err)
	}
	return nil, ErrNotFound
}

func (m Multi) Has(id cid.Cid) bool {
	for _, n := range m.Stores {
		if n.Store != nil && n.Store.Has(id) {
			return true
		}
	}
	return false
}
