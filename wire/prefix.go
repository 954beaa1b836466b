package wire

import (
	"github.com/ipfs/go-cid"
)

// prefixBytes returns the wire form of a CID's prefix: the varint-encoded
// (version, codec, multihash-type, multihash-length) tuple described in
// spec §4.1. go-cid's own Prefix.Bytes already produces exactly this
// layout, so this is a thin, named pass-through kept for readability at
// call sites in codec.go.
func prefixBytes(c cid.Cid) []byte {
	return c.Prefix().Bytes()
}

// cidFromPrefixAndData reconstructs a CID by combining a wire-form prefix
// with the block's raw data, per spec §4.1: hash data with the prefix's
// declared multihash type to the declared length, then assemble a CID of
// the prefix's version and codec.
func cidFromPrefixAndData(prefixBytes, data []byte) (cid.Cid, error) {
	prefix, err := cid.PrefixFromBytes(prefixBytes)
	if err != nil {
		return cid.Undef, err
	}
	return prefix.Sum(data)
}
