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

// TLS protocol version wire values.
const (
	VersionTLS10 uint16 = 0x0301
	VersionTLS11 uint16 = 0x0302
	VersionTLS12 uint16 = 0x0303
	VersionTLS13 uint16 = 0x0304
)

// extensionTypeSupportedVersions is the supported_versions extension
// identifier from RFC 8446.
const extensionTypeSupportedVersions uint16 = 43

// VersionWindow is the consecutive range of protocol versions a side is
// willing to negotiate.
type VersionWindow struct {
	Min uint16
	Max uint16
}

// VersionWindowFromOpts maps the configured version names onto wire values.
func VersionWindowFromOpts(opts *ecdhe.Opts) (VersionWindow, error) {
	min, ok := versionByName(opts.MinVersion)
	if !ok {
		return VersionWindow{}, errors.Errorf("handshake: unknown protocol version %q", opts.MinVersion)
	}
	max, ok := versionByName(opts.MaxVersion)
	if !ok {
		return VersionWindow{}, errors.Errorf("handshake: unknown protocol version %q", opts.MaxVersion)
	}
	if min > max {
		return VersionWindow{}, errors.Errorf("handshake: version window %s through %s is inverted", opts.MinVersion, opts.MaxVersion)
	}
	return VersionWindow{Min: min, Max: max}, nil
}

func versionByName(name string) (uint16, bool) {
	switch name {
	case "1.0":
		return VersionTLS10, true
	case "1.1":
		return VersionTLS11, true
	case "1.2":
		return VersionTLS12, true
	case "1.3":
		return VersionTLS13, true
	}
	return 0, false
}

// SupportedVersionsSize returns the full extension size for the window: two
// header fields, the one-byte list length, and two bytes per version.
func SupportedVersionsSize(w VersionWindow) int {
	n := int(w.Max-w.Min) + 1
	return 5 + 2*n
}

// SendSupportedVersions writes the client supported_versions extension with
// the most preferred version first.
func SendSupportedVersions(w VersionWindow, out *cryptobyte.Builder) {
	size := SupportedVersionsSize(w)
	out.AddUint16(extensionTypeSupportedVersions)
	out.AddUint16(uint16(size - 4))
	out.AddUint8(uint8(size - 5))
	for v := w.Max; v >= w.Min; v-- {
		out.AddUint16(v)
	}
}

// ReceiveSupportedVersions consumes a supported_versions extension body
// positioned after the extension headers. It returns the highest version
// inside the local window that the peer offered, ignoring the peer's
// preference order, together with the highest version the peer advertised at
// all. A truncated list or one with no acceptable version is ErrBadMessage.
func ReceiveSupportedVersions(w VersionWindow, ext *cryptobyte.String) (chosen, peerMax uint16, err error) {
	var listLen uint8
	if !ext.ReadUint8(&listLen) {
		return 0, 0, errors.Wrap(ecdhe.ErrBadMessage, "supported_versions: truncated list length")
	}
	for read := 0; read < int(listLen); read += 2 {
		var v uint16
		if !ext.ReadUint16(&v) {
			return 0, 0, errors.Wrap(ecdhe.ErrBadMessage, "supported_versions: truncated version list")
		}
		if v > peerMax {
			peerMax = v
		}
		if v > w.Max || v < w.Min {
			continue
		}
		if v > chosen {
			chosen = v
		}
	}
	if chosen == 0 {
		return 0, peerMax, errors.Wrap(ecdhe.ErrBadMessage, "supported_versions: no mutually supported version")
	}
	return chosen, peerMax, nil
}
