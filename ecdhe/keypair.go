/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdhe

import (
	"crypto/elliptic"
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
)

// KeyPair holds one side's ephemeral material for a single handshake. A pair
// is empty until a curve is negotiated; it then carries either a locally
// generated private scalar with its public point, or only a peer's public
// point installed from the wire. A pair is owned by exactly one connection
// and is not safe for concurrent use.
type KeyPair struct {
	curve *NamedCurve
	priv  []byte
	pubX  *big.Int
	pubY  *big.Int
}

// Generate returns a fresh ephemeral pair on curve.
func Generate(curve *NamedCurve) (*KeyPair, error) {
	kp := &KeyPair{}
	kp.Negotiate(curve)
	if err := kp.GenerateKey(); err != nil {
		return nil, err
	}
	return kp, nil
}

// Negotiate assigns the curve an empty pair will operate on.
func (kp *KeyPair) Negotiate(curve *NamedCurve) { kp.curve = curve }

// Negotiated reports whether a curve has been assigned. On the key_share
// receive path this doubles as the "share accepted" flag of a slot.
func (kp *KeyPair) Negotiated() bool { return kp.curve != nil }

// Curve returns the negotiated curve, nil for an empty pair.
func (kp *KeyPair) Curve() *NamedCurve { return kp.curve }

// HasPrivateKey reports whether the pair holds a locally generated private
// scalar and can therefore act as the local side of a computation.
func (kp *KeyPair) HasPrivateKey() bool { return kp.priv != nil }

// GenerateKey populates the pair with a fresh private scalar and public
// point on the negotiated curve.
func (kp *KeyPair) GenerateKey() error {
	if kp.curve == nil {
		return errors.New("ecdhe: key pair has no negotiated curve")
	}
	priv, x, y, err := elliptic.GenerateKey(kp.curve.group, rand.Reader)
	if err != nil {
		return errors.Wrap(ErrKeyGeneration, err.Error())
	}
	kp.priv = priv
	kp.pubX, kp.pubY = x, y
	return nil
}

// PublicPoint returns the uncompressed encoding of the pair's public point.
func (kp *KeyPair) PublicPoint() ([]byte, error) {
	if kp.curve == nil || kp.pubX == nil {
		return nil, errors.New("ecdhe: key pair has no public point")
	}
	n, err := encodedLen(kp.curve.group)
	if err != nil {
		return nil, err
	}
	return encodePoint(kp.curve.group, kp.pubX, kp.pubY, n)
}

// SetPeerPublicPoint installs a peer's public point from its wire encoding.
// The pair then carries no private scalar and can serve only as the peer
// side of a shared-secret computation.
func (kp *KeyPair) SetPeerPublicPoint(data []byte) error {
	if kp.curve == nil {
		return errors.New("ecdhe: key pair has no negotiated curve")
	}
	x, y, err := decodePoint(kp.curve.group, data)
	if err != nil {
		return err
	}
	kp.priv = nil
	kp.pubX, kp.pubY = x, y
	return nil
}

// SharedSecret runs ECDH between the pair's private scalar and the peer's
// public point. The secret is the X coordinate left-padded to the field byte
// length, which is queried from the group rather than derived from the wire
// share size. A degenerate result is discarded and reported as
// ErrSharedSecret; no partial secret escapes.
func (kp *KeyPair) SharedSecret(peer *KeyPair) ([]byte, error) {
	switch {
	case kp.curve == nil:
		return nil, errors.New("ecdhe: key pair has no negotiated curve")
	case kp.priv == nil:
		return nil, errors.New("ecdhe: key pair has no private scalar")
	case peer == nil || peer.pubX == nil:
		return nil, errors.New("ecdhe: peer key pair has no public point")
	case peer.curve != nil && peer.curve.ID != kp.curve.ID:
		return nil, errors.Errorf("ecdhe: curve mismatch, %s against %s", kp.curve.Name, peer.curve.Name)
	}

	bits := kp.curve.group.Params().BitSize
	if bits <= 0 {
		return nil, errors.Wrap(ErrSharedSecret, "group reports a non-positive field degree")
	}
	x, _ := kp.curve.group.ScalarMult(peer.pubX, peer.pubY, kp.priv)
	if x == nil || x.Sign() == 0 {
		return nil, errors.Wrap(ErrSharedSecret, "degenerate ECDH result")
	}

	secret := make([]byte, (bits+7)/8)
	xb := x.Bytes()
	if len(xb) > len(secret) {
		Zeroize(secret)
		return nil, errors.Wrap(ErrSharedSecret, "ECDH output exceeds the field length")
	}
	copy(secret[len(secret)-len(xb):], xb)
	return secret, nil
}

// Dispose zeroizes any private scalar and returns the pair to the empty
// state. Disposal is required on every path that owned a generated pair,
// including failures. Safe to call repeatedly.
func (kp *KeyPair) Dispose() {
	if kp == nil {
		return
	}
	Zeroize(kp.priv)
	kp.priv = nil
	kp.pubX, kp.pubY = nil, nil
	kp.curve = nil
}

// Zeroize wipes b in place. Callers that hold derived secrets use it to
// destroy them once consumed.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
