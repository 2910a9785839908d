/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdhe

import (
	"crypto/elliptic"
	"math/big"

	"github.com/pkg/errors"
)

// maxEncodedLen is the largest point encoding representable by the wire
// format's one-byte length field.
const maxEncodedLen = 255

// encodedLen returns the exact uncompressed-point encoding length for group:
// one format octet plus two coordinates padded to the field byte length.
func encodedLen(group elliptic.Curve) (int, error) {
	bits := group.Params().BitSize
	if bits <= 0 {
		return 0, errors.Wrap(ErrSerialization, "group reports a non-positive field degree")
	}
	n := 1 + 2*((bits+7)/8)
	if n > maxEncodedLen {
		return 0, errors.Wrapf(ErrSerialization, "encoded point length %d exceeds the wire maximum", n)
	}
	return n, nil
}

// encodePoint produces the uncompressed encoding of (x, y) and verifies that
// it matches the precomputed length. A mismatch is an internal inconsistency
// between the group and the registry entry, never attributable to the peer.
func encodePoint(group elliptic.Curve, x, y *big.Int, expect int) ([]byte, error) {
	out := elliptic.Marshal(group, x, y)
	if len(out) != expect {
		return nil, errors.Wrapf(ErrSerialization, "encoded %d bytes, expected %d", len(out), expect)
	}
	return out, nil
}

// decodePoint parses data as an uncompressed point on group. Peer input is
// untrusted, so every rejection (wrong length, wrong format octet,
// out-of-range coordinate, point not on the curve) collapses to
// ErrBadMessage without further distinction.
func decodePoint(group elliptic.Curve, data []byte) (*big.Int, *big.Int, error) {
	x, y := elliptic.Unmarshal(group, data)
	if x == nil {
		return nil, nil, errors.Wrap(ErrBadMessage, "invalid point encoding")
	}
	return x, y, nil
}
