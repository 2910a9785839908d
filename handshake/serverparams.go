/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package handshake

import (
	"github.com/hyperledger/fabric-ecdhe/ecdhe"
	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
)

// namedCurveTypeTag is the ECCurveType value for named curves, the only
// curve encoding accepted here.
const namedCurveTypeTag = 3

// serverParamsHeaderLen is the fixed prefix of the server params message:
// curve type, curve id, and point length.
const serverParamsHeaderLen = 4

// RawServerParams carries the spans of one server key exchange message
// before any semantic validation. All is the exact region a signature
// elsewhere covers. The slices borrow from the input and must not be
// retained past parsing.
type RawServerParams struct {
	All     []byte
	CurveID []byte
	Point   []byte
}

// MarshalServerParams encodes the server's ECDHE parameters: the named-curve
// tag, the curve identifier, and the length-prefixed public point. It
// requires a pair with a negotiated curve and a locally generated key. The
// point length is re-derived from the group encoding, not read from the
// registry constant, so a curve and group mismatch surfaces here. The
// returned slice is the exact span the handshake signature covers.
func MarshalServerParams(kp *ecdhe.KeyPair) ([]byte, error) {
	curve := kp.Curve()
	if curve == nil {
		return nil, errors.New("handshake: server params require a negotiated curve")
	}
	if !kp.HasPrivateKey() {
		return nil, errors.New("handshake: server params require a generated key pair")
	}
	point, err := kp.PublicPoint()
	if err != nil {
		return nil, err
	}
	if len(point) != int(curve.ShareSize) {
		return nil, errors.Wrapf(ecdhe.ErrSerialization, "curve %s encoded %d bytes, share size is %d", curve.Name, len(point), curve.ShareSize)
	}

	var b cryptobyte.Builder
	b.AddUint8(namedCurveTypeTag)
	b.AddUint16(curve.ID)
	b.AddUint8(uint8(len(point)))
	b.AddBytes(point)
	out, err := b.Bytes()
	if err != nil {
		return nil, errors.Wrap(ecdhe.ErrSerialization, err.Error())
	}
	return out, nil
}

// ReadServerParams splits one server key exchange message into its raw
// spans. Only the curve type tag is checked here; the curve id and point are
// captured untouched so a caller can hash All for signature verification
// before anything else is trusted.
func ReadServerParams(s *cryptobyte.String) (*RawServerParams, error) {
	base := []byte(*s)

	var curveType uint8
	if !s.ReadUint8(&curveType) {
		return nil, errors.Wrap(ecdhe.ErrBadMessage, "server params: truncated curve type")
	}
	if curveType != namedCurveTypeTag {
		return nil, errors.Wrapf(ecdhe.ErrBadMessage, "server params: curve type %d is not a named curve", curveType)
	}

	var curveID []byte
	if !s.ReadBytes(&curveID, 2) {
		return nil, errors.Wrap(ecdhe.ErrBadMessage, "server params: truncated curve id")
	}
	var pointLen uint8
	if !s.ReadUint8(&pointLen) {
		return nil, errors.Wrap(ecdhe.ErrBadMessage, "server params: truncated point length")
	}
	var point []byte
	if !s.ReadBytes(&point, int(pointLen)) {
		return nil, errors.Wrapf(ecdhe.ErrBadMessage, "server params: point declares %d bytes, %d remain", pointLen, len(*s))
	}

	return &RawServerParams{
		All:     base[:serverParamsHeaderLen+int(pointLen)],
		CurveID: curveID,
		Point:   point,
	}, nil
}

// ParseServerParams resolves the raw curve id against the registry and
// installs the server's public point. The two failure kinds stay distinct:
// an unknown curve is ErrUnsupportedCurve, a rejected point ErrBadMessage.
func ParseServerParams(registry *ecdhe.Registry, raw *RawServerParams) (*ecdhe.KeyPair, error) {
	curve, err := registry.FindSupported(raw.CurveID)
	if err != nil {
		return nil, err
	}
	kp := &ecdhe.KeyPair{}
	kp.Negotiate(curve)
	if err := kp.SetPeerPublicPoint(raw.Point); err != nil {
		return nil, err
	}
	return kp, nil
}

// ComputeSharedSecretAsClient finishes the legacy flow on the client side.
// It generates a fresh ephemeral pair on the server's negotiated curve,
// derives the shared secret against the server's public point, and writes
// the client's public point length-prefixed to out. The fresh private
// material never survives the call, on success or failure.
func ComputeSharedSecretAsClient(server *ecdhe.KeyPair, out *cryptobyte.Builder) ([]byte, error) {
	curve := server.Curve()
	if curve == nil {
		return nil, errors.New("handshake: server pair has no negotiated curve")
	}
	client, err := ecdhe.Generate(curve)
	if err != nil {
		return nil, err
	}
	defer client.Dispose()

	secret, err := client.SharedSecret(server)
	if err != nil {
		return nil, err
	}
	point, err := client.PublicPoint()
	if err != nil {
		ecdhe.Zeroize(secret)
		return nil, err
	}
	out.AddUint8(uint8(len(point)))
	out.AddBytes(point)
	return secret, nil
}

// ComputeSharedSecretAsServer finishes the legacy flow on the server side.
// It reads the client's length-prefixed public point, decodes it on the
// already negotiated curve, and derives the secret with the server's
// retained pair.
func ComputeSharedSecretAsServer(server *ecdhe.KeyPair, in *cryptobyte.String) ([]byte, error) {
	curve := server.Curve()
	if curve == nil {
		return nil, errors.New("handshake: server pair has no negotiated curve")
	}
	var point cryptobyte.String
	if !in.ReadUint8LengthPrefixed(&point) {
		return nil, errors.Wrap(ecdhe.ErrBadMessage, "client key exchange: truncated public point")
	}
	client := &ecdhe.KeyPair{}
	client.Negotiate(curve)
	if err := client.SetPeerPublicPoint(point); err != nil {
		return nil, err
	}
	return server.SharedSecret(client)
}
