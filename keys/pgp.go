/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// PGPDigest builds the SHA-256 digest a v4 OpenPGP signature commits to:
// the message, the signature packet's hashed headers, and the RFC 4880
// trailer 0x04 0xFF followed by the hashed-header length as a big-endian
// uint32. GnuPG's EdDSA signs this digest as the Ed25519 message.
func PGPDigest(message, otherHeaders []byte) []byte {
	h := sha256.New()
	h.Write(message)
	h.Write(otherHeaders)
	h.Write([]byte{0x04, 0xff})
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(otherHeaders)))
	h.Write(n[:])
	return h.Sum(nil)
}

func verifyPGP(material, message []byte, sig *Signature) error {
	if len(sig.OtherHeaders) == 0 {
		return fmt.Errorf("%w: pgp signature carries no hashed headers", ErrInvalidSignature)
	}
	if len(sig.Bytes) != ed25519.SignatureSize {
		return fmt.Errorf("%w: pgp eddsa signature must be %d bytes",
			ErrInvalidSignature, ed25519.SignatureSize)
	}
	digest := PGPDigest(message, sig.OtherHeaders)
	if !ed25519.Verify(ed25519.PublicKey(material), digest, sig.Bytes) {
		return ErrInvalidSignature
	}
	return nil
}
