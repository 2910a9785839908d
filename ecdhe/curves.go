/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdhe

import (
	"crypto/elliptic"

	"github.com/pkg/errors"
)

// Named-curve identifiers from the IANA TLS Supported Groups registry.
const (
	CurveIDSecp256r1 uint16 = 23
	CurveIDSecp384r1 uint16 = 24
)

// NamedCurve couples a TLS group identifier with the elliptic group backing
// it. ShareSize is the exact uncompressed-point encoding length for the
// curve, one format octet plus two field-length coordinates; a share of any
// other length on the wire for this curve is a protocol violation.
type NamedCurve struct {
	ID        uint16
	Name      string
	ShareSize uint8
	group     elliptic.Curve
}

// NewNamedCurve builds a registry entry for group. The share size is derived
// from the group's field length rather than supplied by the caller.
func NewNamedCurve(id uint16, name string, group elliptic.Curve) (NamedCurve, error) {
	if group == nil {
		return NamedCurve{}, errors.Errorf("ecdhe: curve %s has no group", name)
	}
	size, err := encodedLen(group)
	if err != nil {
		return NamedCurve{}, errors.WithMessagef(err, "curve %s", name)
	}
	return NamedCurve{ID: id, Name: name, ShareSize: uint8(size), group: group}, nil
}

// Group returns the elliptic group backing the curve.
func (c *NamedCurve) Group() elliptic.Curve { return c.group }

// supportedCurves is the built-in table of curves selectable by name through
// Opts. Order here is the default preference order.
var supportedCurves = []NamedCurve{
	{ID: CurveIDSecp256r1, Name: "secp256r1", ShareSize: 65, group: elliptic.P256()},
	{ID: CurveIDSecp384r1, Name: "secp384r1", ShareSize: 97, group: elliptic.P384()},
}

func curveByName(name string) (NamedCurve, bool) {
	for _, c := range supportedCurves {
		if c.Name == name {
			return c, true
		}
	}
	return NamedCurve{}, false
}
