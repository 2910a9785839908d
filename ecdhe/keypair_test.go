/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdhe

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesExactShareSizes(t *testing.T) {
	reg := DefaultRegistry()
	for i := 0; i < reg.Len(); i++ {
		curve := reg.At(i)
		kp, err := Generate(curve)
		require.NoError(t, err)
		defer kp.Dispose()

		require.True(t, kp.Negotiated())
		require.True(t, kp.HasPrivateKey())
		require.Equal(t, curve, kp.Curve())

		point, err := kp.PublicPoint()
		require.NoError(t, err)
		require.Len(t, point, int(curve.ShareSize))
		require.Equal(t, byte(4), point[0])
	}
}

func TestPublicPointRoundTrip(t *testing.T) {
	reg := DefaultRegistry()
	for i := 0; i < reg.Len(); i++ {
		curve := reg.At(i)
		kp, err := Generate(curve)
		require.NoError(t, err)
		defer kp.Dispose()

		point, err := kp.PublicPoint()
		require.NoError(t, err)

		peer := &KeyPair{}
		peer.Negotiate(curve)
		require.NoError(t, peer.SetPeerPublicPoint(point))
		require.True(t, peer.Negotiated())
		require.False(t, peer.HasPrivateKey())

		reencoded, err := peer.PublicPoint()
		require.NoError(t, err)
		require.True(t, bytes.Equal(point, reencoded))
	}
}

func TestSharedSecretAgreement(t *testing.T) {
	reg := DefaultRegistry()
	wantLen := map[uint16]int{CurveIDSecp256r1: 32, CurveIDSecp384r1: 48}

	for i := 0; i < reg.Len(); i++ {
		curve := reg.At(i)
		a, err := Generate(curve)
		require.NoError(t, err)
		defer a.Dispose()
		b, err := Generate(curve)
		require.NoError(t, err)
		defer b.Dispose()

		sa, err := a.SharedSecret(b)
		require.NoError(t, err)
		sb, err := b.SharedSecret(a)
		require.NoError(t, err)

		require.Equal(t, sa, sb)
		require.Len(t, sa, wantLen[curve.ID])
	}
}

func TestSharedSecretAgreementOnARegisteredGroup(t *testing.T) {
	k1, err := NewNamedCurve(22, "secp256k1", btcec.S256())
	require.NoError(t, err)
	reg, err := NewRegistryFromCurves(k1)
	require.NoError(t, err)

	a, err := Generate(reg.At(0))
	require.NoError(t, err)
	defer a.Dispose()
	b, err := Generate(reg.At(0))
	require.NoError(t, err)
	defer b.Dispose()

	sa, err := a.SharedSecret(b)
	require.NoError(t, err)
	sb, err := b.SharedSecret(a)
	require.NoError(t, err)
	require.Equal(t, sa, sb)
	require.Len(t, sa, 32)
}

func TestSharedSecretContractViolations(t *testing.T) {
	reg := DefaultRegistry()
	p256 := reg.At(0)
	p384 := reg.At(1)

	empty := &KeyPair{}
	_, err := empty.SharedSecret(empty)
	require.EqualError(t, err, "ecdhe: key pair has no negotiated curve")

	a, err := Generate(p256)
	require.NoError(t, err)
	defer a.Dispose()

	point, err := a.PublicPoint()
	require.NoError(t, err)
	peerOnly := &KeyPair{}
	peerOnly.Negotiate(p256)
	require.NoError(t, peerOnly.SetPeerPublicPoint(point))

	_, err = peerOnly.SharedSecret(a)
	require.EqualError(t, err, "ecdhe: key pair has no private scalar")

	blank := &KeyPair{}
	blank.Negotiate(p256)
	_, err = a.SharedSecret(blank)
	require.EqualError(t, err, "ecdhe: peer key pair has no public point")

	other, err := Generate(p384)
	require.NoError(t, err)
	defer other.Dispose()
	_, err = a.SharedSecret(other)
	require.Contains(t, err.Error(), "curve mismatch")
}

func TestSetPeerPublicPointRejectsGarbage(t *testing.T) {
	curve := DefaultRegistry().At(0)

	kp := &KeyPair{}
	err := kp.SetPeerPublicPoint(make([]byte, 65))
	require.EqualError(t, err, "ecdhe: key pair has no negotiated curve")

	kp.Negotiate(curve)
	for name, data := range map[string][]byte{
		"short":     make([]byte, 64),
		"zeroed":    make([]byte, 65),
		"wrong tag": append([]byte{6}, make([]byte, 64)...),
	} {
		err := kp.SetPeerPublicPoint(data)
		require.ErrorIs(t, err, ErrBadMessage, "case %q", name)
		require.False(t, kp.HasPrivateKey(), "case %q", name)
	}
}

func TestDisposeZeroizesPrivateScalar(t *testing.T) {
	kp, err := Generate(DefaultRegistry().At(0))
	require.NoError(t, err)

	priv := kp.priv
	require.NotEmpty(t, priv)
	require.NotEqual(t, make([]byte, len(priv)), priv)

	kp.Dispose()
	require.Equal(t, make([]byte, len(priv)), priv)
	require.Nil(t, kp.priv)
	require.Nil(t, kp.pubX)
	require.Nil(t, kp.pubY)
	require.False(t, kp.Negotiated())

	// A second disposal and disposal of a nil pair are harmless.
	kp.Dispose()
	var nilPair *KeyPair
	nilPair.Dispose()
}

func TestGenerateKeyRequiresACurve(t *testing.T) {
	kp := &KeyPair{}
	require.EqualError(t, kp.GenerateKey(), "ecdhe: key pair has no negotiated curve")

	_, err := kp.PublicPoint()
	require.EqualError(t, err, "ecdhe: key pair has no public point")
}

func TestZeroize(t *testing.T) {
	b := []byte{1, 2, 3}
	Zeroize(b)
	require.Equal(t, []byte{0, 0, 0}, b)
	Zeroize(nil)
}
