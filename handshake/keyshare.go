/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package handshake implements the TLS wire protocols that carry ECDHE key
// agreement material: the TLS 1.3 key_share extension, the legacy server
// key exchange parameters message, and the supported_versions extension.
package handshake

import (
	"github.com/hyperledger/fabric-ecdhe/ecdhe"
	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"github.com/hyperledger/fabric-lib-go/common/metrics/disabled"
	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
)

var logger = flogging.MustGetLogger("ecdhe.handshake")

// ExtensionTypeKeyShare is the key_share extension identifier from RFC 8446.
const ExtensionTypeKeyShare uint16 = 51

// Field widths of the key_share extension layout.
const (
	sizeOfExtensionType    = 2
	sizeOfExtensionDataLen = 2
	sizeOfClientSharesLen  = 2
	sizeOfNamedGroup       = 2
	sizeOfKeyShareLen      = 2
)

// KeyShareSlots is the receive-side store for one connection: one ephemeral
// pair per registry curve, index-aligned with the registry. A slot whose
// pair has a negotiated curve has accepted a share. Slots are owned by one
// connection and are never shared across goroutines.
type KeyShareSlots struct {
	slots []ecdhe.KeyPair
}

// NewKeyShareSlots allocates one empty slot per registry curve.
func NewKeyShareSlots(registry *ecdhe.Registry) *KeyShareSlots {
	return &KeyShareSlots{slots: make([]ecdhe.KeyPair, registry.Len())}
}

// Len returns the number of slots.
func (s *KeyShareSlots) Len() int { return len(s.slots) }

// At returns the pair stored at registry position i.
func (s *KeyShareSlots) At(i int) *ecdhe.KeyPair { return &s.slots[i] }

// FirstPopulated returns the earliest slot in registry order holding an
// accepted share. That slot carries the curve the handshake proceeds with.
func (s *KeyShareSlots) FirstPopulated() (*ecdhe.KeyPair, bool) {
	for i := range s.slots {
		if s.slots[i].Negotiated() {
			return &s.slots[i], true
		}
	}
	return nil, false
}

// Dispose releases every slot, zeroizing private material. Required on
// handshake teardown whether or not a secret was ever computed.
func (s *KeyShareSlots) Dispose() {
	for i := range s.slots {
		s.slots[i].Dispose()
	}
}

// KeyShareExtension writes and reads the TLS 1.3 key_share extension over a
// fixed registry. The send path always offers every registry curve; the
// receive path is deliberately lenient, see Recv.
type KeyShareExtension struct {
	registry *ecdhe.Registry
	metrics  *Metrics
	size     int
}

// NewKeyShareExtension builds a handler over registry. A nil metrics wires
// the disabled provider.
func NewKeyShareExtension(registry *ecdhe.Registry, m *Metrics) *KeyShareExtension {
	if m == nil {
		m = NewMetrics(&disabled.Provider{})
	}
	size := sizeOfExtensionType + sizeOfExtensionDataLen + sizeOfClientSharesLen
	for _, c := range registry.Curves() {
		size += sizeOfNamedGroup + sizeOfKeyShareLen + int(c.ShareSize)
	}
	return &KeyShareExtension{registry: registry, metrics: m, size: size}
}

// Size returns the total extension size on the wire, headers included. The
// sender offers every registry curve, so the size is fixed for the life of
// the registry and computed once at construction.
func (e *KeyShareExtension) Size() int { return e.size }

// Send writes the complete extension: the three header fields followed by
// one share per registry curve, in registry order. Every share generates a
// fresh ephemeral pair into its slot before the public point is written.
func (e *KeyShareExtension) Send(slots *KeyShareSlots, out *cryptobyte.Builder) error {
	if slots.Len() != e.registry.Len() {
		return errors.New("handshake: slots do not match the registry")
	}

	out.AddUint16(ExtensionTypeKeyShare)
	out.AddUint16(uint16(e.size - sizeOfExtensionType - sizeOfExtensionDataLen))
	out.AddUint16(uint16(e.size - sizeOfExtensionType - sizeOfExtensionDataLen - sizeOfClientSharesLen))

	for i := 0; i < e.registry.Len(); i++ {
		curve := e.registry.At(i)
		slot := slots.At(i)
		slot.Negotiate(curve)
		if err := slot.GenerateKey(); err != nil {
			return err
		}
		point, err := slot.PublicPoint()
		if err != nil {
			return err
		}
		out.AddUint16(curve.ID)
		out.AddUint16(uint16(curve.ShareSize))
		out.AddBytes(point)
		e.metrics.SharesSent.Add(1)
	}
	return nil
}

// Recv consumes a key_share extension body positioned after the extension
// type and length headers, populating slots from the peer's share list.
//
// The receive path is lenient. Shares for unknown groups, additional shares
// for a group whose slot is already populated, shares whose declared length
// does not match the curve's share size, and shares whose points fail to
// decode are all skipped and the loop continues. Only structural corruption
// is fatal: a declared length that exceeds the bytes actually present.
func (e *KeyShareExtension) Recv(slots *KeyShareSlots, ext *cryptobyte.String) error {
	if slots.Len() != e.registry.Len() {
		return errors.New("handshake: slots do not match the registry")
	}

	var sharesLen uint16
	if !ext.ReadUint16(&sharesLen) {
		e.metrics.RecvFailures.Add(1)
		return errors.Wrap(ecdhe.ErrBadMessage, "key_share: truncated client shares length")
	}
	if int(sharesLen) > len(*ext) {
		e.metrics.RecvFailures.Add(1)
		return errors.Wrapf(ecdhe.ErrBadMessage, "key_share: %d bytes of shares declared, %d remain", sharesLen, len(*ext))
	}

	processed := 0
	for processed < int(sharesLen) {
		var group, shareLen uint16
		if !ext.ReadUint16(&group) || !ext.ReadUint16(&shareLen) {
			e.metrics.RecvFailures.Add(1)
			return errors.Wrap(ecdhe.ErrBadMessage, "key_share: truncated share header")
		}
		if int(shareLen) > len(*ext) {
			e.metrics.RecvFailures.Add(1)
			return errors.Wrapf(ecdhe.ErrBadMessage, "key_share: share declares %d bytes, %d remain", shareLen, len(*ext))
		}
		processed += sizeOfNamedGroup + sizeOfKeyShareLen + int(shareLen)

		index := -1
		for i := 0; i < e.registry.Len(); i++ {
			if e.registry.At(i).ID == group {
				index = i
				break
			}
		}
		if index < 0 {
			e.skip(ext, shareLen, group, skipReasonUnknownGroup)
			continue
		}

		curve := e.registry.At(index)
		slot := slots.At(index)
		if slot.Negotiated() {
			e.skip(ext, shareLen, group, skipReasonDuplicate)
			continue
		}
		if uint16(curve.ShareSize) != shareLen {
			e.skip(ext, shareLen, group, skipReasonSizeMismatch)
			continue
		}

		var point []byte
		ext.ReadBytes(&point, int(shareLen))
		slot.Negotiate(curve)
		if err := slot.SetPeerPublicPoint(point); err != nil {
			slot.Dispose()
			logger.Debugf("key_share: dropping share for group %d: %s", group, err)
			e.metrics.SharesSkipped.With("reason", skipReasonPointRejected).Add(1)
			continue
		}
		e.metrics.SharesReceived.Add(1)
	}
	return nil
}

func (e *KeyShareExtension) skip(ext *cryptobyte.String, shareLen, group uint16, reason string) {
	ext.Skip(int(shareLen))
	logger.Debugf("key_share: skipping %d byte share for group %d: %s", shareLen, group, reason)
	e.metrics.SharesSkipped.With("reason", reason).Add(1)
}
