/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdhe

import (
	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
)

var logger = flogging.MustGetLogger("ecdhe")

// Registry is an ordered set of named curves. The order encodes local
// preference: negotiation returns the earliest registry entry the peer also
// offers, regardless of the peer's ordering. A Registry is immutable after
// construction and safe for concurrent readers.
type Registry struct {
	curves []NamedCurve
}

// NewRegistry resolves the curve names in opts against the built-in curve
// table, preserving the configured order.
func NewRegistry(opts *Opts) (*Registry, error) {
	if opts == nil {
		opts = GetDefaultOpts()
	}
	curves := make([]NamedCurve, 0, len(opts.Curves))
	for _, name := range opts.Curves {
		c, ok := curveByName(name)
		if !ok {
			return nil, errors.Errorf("ecdhe: unknown curve name %q", name)
		}
		curves = append(curves, c)
	}
	return NewRegistryFromCurves(curves...)
}

// NewRegistryFromCurves builds a registry from explicit entries, which lets
// callers register additional groups at startup. Entries are validated for
// unique identifiers and for share sizes that match their groups exactly.
func NewRegistryFromCurves(curves ...NamedCurve) (*Registry, error) {
	if len(curves) == 0 {
		return nil, errors.New("ecdhe: no curves configured")
	}
	seen := make(map[uint16]struct{}, len(curves))
	for i := range curves {
		c := &curves[i]
		if c.group == nil {
			return nil, errors.Errorf("ecdhe: curve %s has no group", c.Name)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, errors.Errorf("ecdhe: duplicate curve id %d", c.ID)
		}
		seen[c.ID] = struct{}{}
		size, err := encodedLen(c.group)
		if err != nil {
			return nil, errors.WithMessagef(err, "curve %s", c.Name)
		}
		if int(c.ShareSize) != size {
			return nil, errors.Errorf("ecdhe: curve %s declares share size %d, group encodes %d", c.Name, c.ShareSize, size)
		}
	}
	reg := &Registry{curves: append([]NamedCurve(nil), curves...)}
	logger.Debugf("curve registry constructed with %d curves", len(curves))
	return reg, nil
}

var defaultRegistry *Registry

func init() {
	reg, err := NewRegistry(GetDefaultOpts())
	if err != nil {
		panic(err)
	}
	defaultRegistry = reg
}

// DefaultRegistry returns the process-wide registry built from the default
// options.
func DefaultRegistry() *Registry { return defaultRegistry }

// Len returns the number of registered curves.
func (r *Registry) Len() int { return len(r.curves) }

// At returns the registry entry at position i. Entry identity is stable for
// the life of the registry, so the returned pointer doubles as the curve
// reference installed in key pairs and slots.
func (r *Registry) At(i int) *NamedCurve { return &r.curves[i] }

// Curves returns a copy of the registry entries in preference order.
func (r *Registry) Curves() []NamedCurve {
	return append([]NamedCurve(nil), r.curves...)
}

// FindByID returns the registry entry carrying the given wire identifier.
func (r *Registry) FindByID(id uint16) (*NamedCurve, error) {
	for i := range r.curves {
		if r.curves[i].ID == id {
			return &r.curves[i], nil
		}
	}
	return nil, errors.Wrapf(ErrUnsupportedCurve, "curve id %d is not registered", id)
}

// FindSupported returns the first curve in registry order whose identifier
// appears anywhere in candidates, a big-endian list of 16-bit group ids.
// Registry order wins over candidate order: the local preference list
// decides which mutually supported curve is selected. The candidate list is
// rescanned from the start for every registry entry.
func (r *Registry) FindSupported(candidates []byte) (*NamedCurve, error) {
	if len(candidates)%2 != 0 {
		return nil, errors.Wrapf(ErrUnsupportedCurve, "candidate list has odd length %d", len(candidates))
	}
	for i := range r.curves {
		ids := cryptobyte.String(candidates)
		var id uint16
		for ids.ReadUint16(&id) {
			if id == r.curves[i].ID {
				return &r.curves[i], nil
			}
		}
	}
	return nil, errors.Wrap(ErrUnsupportedCurve, "no mutually supported curve")
}
