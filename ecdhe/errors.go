/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdhe

import "github.com/pkg/errors"

// Failure kinds returned by this package and by the handshake codecs built
// on top of it. Call sites attach context with errors.Wrap; callers classify
// with errors.Is.
var (
	// ErrBadMessage reports peer-supplied bytes that are structurally or
	// semantically invalid: a wrong type tag, a truncated buffer, a declared
	// length larger than the bytes actually present, or a public point the
	// group arithmetic rejects. Always fatal to the handshake.
	ErrBadMessage = errors.New("ecdhe: malformed peer message")

	// ErrUnsupportedCurve reports that negotiation found no mutually
	// supported curve or that a registry lookup failed.
	ErrUnsupportedCurve = errors.New("ecdhe: unsupported curve")

	// ErrKeyGeneration reports a local ephemeral key generation failure.
	ErrKeyGeneration = errors.New("ecdhe: ephemeral key generation failed")

	// ErrSharedSecret reports that the ECDH computation failed or produced a
	// degenerate result. No partial secret is ever returned.
	ErrSharedSecret = errors.New("ecdhe: shared secret computation failed")

	// ErrSerialization reports an internal inconsistency while encoding a
	// public point: the precomputed length and the actual encoding disagree.
	ErrSerialization = errors.New("ecdhe: point serialization failed")
)
