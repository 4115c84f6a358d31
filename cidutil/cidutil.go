// Package cidutil derives content identifiers for PNG files and snapshots.
//
// Every identifier in pngme is a CIDv1 with the raw codec over a sha2-256
// multihash of the exact file bytes.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Of returns the CIDv1 (raw + sha2-256) of data.
func Of(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// String is Of rendered in the default base32 form.
func String(data []byte) string {
	id, err := Of(data)
	if err != nil {
		// multihash.Sum only errors for unknown codes or bad lengths.
		return ""
	}
	return id.String()
}

// Parse decodes s and checks that it names content the way Of does.
func Parse(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, fmt.Errorf("cidutil: undefined cid")
	}
	if id.Version() != 1 {
		return cid.Undef, fmt.Errorf("cidutil: %s is not a CIDv1", s)
	}
	if id.Type() != cid.Raw {
		return cid.Undef, fmt.Errorf("cidutil: %s does not use the raw codec", s)
	}
	if id.Prefix().MhType != multihash.SHA2_256 {
		return cid.Undef, fmt.Errorf("cidutil: %s is not a sha2-256 cid", s)
	}
	return id, nil
}
