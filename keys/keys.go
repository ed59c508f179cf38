/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package keys implements the signature schemes a role threshold can be
// satisfied with. The scheme set is closed: dispatch is by switch, never
// by runtime registration, so only the schemes below can ever count
// toward a threshold.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/veraison/go-cose"
)

type Scheme string

const (
	// SchemeEd25519 is the native scheme: Ed25519 directly over the
	// canonical payload bytes. 32-byte keys, 64-byte signatures.
	SchemeEd25519 Scheme = "ed25519"
	// SchemePGPEd25519 verifies GnuPG EdDSA signatures made over the
	// canonical payload with the OpenPGP v4 digest construction.
	// Verification is native; signature production goes through an
	// external Signer.
	SchemePGPEd25519 Scheme = "pgp+eddsa-ed25519"
	// SchemeCOSEES256 carries the canonical payload as the detached
	// payload of a COSE_Sign1 message signed with ES256.
	SchemeCOSEES256 Scheme = "cose+es256"
)

func (s Scheme) Supported() bool {
	switch s {
	case SchemeEd25519, SchemePGPEd25519, SchemeCOSEES256:
		return true
	}
	return false
}

// PublicKey is immutable; the content-derived key ID is computed at
// construction. For the ed25519 and pgp+eddsa-ed25519 schemes the
// material is the raw 32-byte point and the ID is its hex form, so a
// natively held key and a GnuPG-held key over the same point share one
// identity and either signature format verifies against it. COSE keys
// are identified by their RFC 9679 thumbprint.
type PublicKey struct {
	scheme   Scheme
	material []byte
	id       string
}

func NewPublicKey(scheme Scheme, material []byte) (*PublicKey, error) {
	switch scheme {
	case SchemeEd25519, SchemePGPEd25519:
		if len(material) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: %s key must be %d bytes, got %d",
				ErrInvalidKey, scheme, ed25519.PublicKeySize, len(material))
		}
		m := append([]byte(nil), material...)
		return &PublicKey{scheme: scheme, material: m, id: hex.EncodeToString(m)}, nil
	case SchemeCOSEES256:
		return newCOSEPublicKey(material)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

func (k *PublicKey) Scheme() Scheme { return k.scheme }

func (k *PublicKey) ID() string { return k.id }

// Material returns a copy of the raw public key material.
func (k *PublicKey) Material() []byte { return append([]byte(nil), k.material...) }

// Equal compares key material in constant time.
func (k *PublicKey) Equal(other *PublicKey) bool {
	if k == nil || other == nil {
		return k == other
	}
	if k.scheme != other.scheme || len(k.material) != len(other.material) {
		return false
	}
	return subtle.ConstantTimeCompare(k.material, other.material) == 1
}

// Signature binds one key to one payload. OtherHeaders carries the
// OpenPGP v4 hashed header bytes and is set only on the pgp scheme.
type Signature struct {
	KeyID        string
	Scheme       Scheme
	Bytes        []byte
	OtherHeaders []byte
}

// Signer produces signatures over raw message bytes. *PrivateKey
// satisfies it, as does the GnuPG adapter that signs through an external
// keyring.
type Signer interface {
	Sign(message []byte) (*Signature, error)
}

// Verify checks sig over message. Dispatch follows the signature's
// scheme: an Ed25519 point verifies both native and GnuPG-format
// signatures, a COSE key verifies COSE_Sign1 signatures. Unknown scheme
// tags fail with ErrUnsupportedScheme, which is distinct from
// cryptographic failure (ErrInvalidSignature).
func (k *PublicKey) Verify(message []byte, sig *Signature) error {
	if sig == nil {
		return fmt.Errorf("%w: no signature given", ErrInvalidSignature)
	}
	switch sig.Scheme {
	case SchemeEd25519:
		if len(k.material) != ed25519.PublicKeySize {
			return ErrSchemeMismatch
		}
		if len(sig.Bytes) != ed25519.SignatureSize {
			return fmt.Errorf("%w: ed25519 signature must be %d bytes",
				ErrInvalidSignature, ed25519.SignatureSize)
		}
		if !ed25519.Verify(ed25519.PublicKey(k.material), message, sig.Bytes) {
			return ErrInvalidSignature
		}
		return nil
	case SchemePGPEd25519:
		if len(k.material) != ed25519.PublicKeySize {
			return ErrSchemeMismatch
		}
		return verifyPGP(k.material, message, sig)
	case SchemeCOSEES256:
		if k.scheme != SchemeCOSEES256 {
			return ErrSchemeMismatch
		}
		return verifyCOSE(k.material, message, sig)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, sig.Scheme)
	}
}

// PrivateKey holds signing material for the native schemes. The pgp
// scheme has no private form here: its signatures are produced by an
// external Signer and only verified in-process.
type PrivateKey struct {
	scheme Scheme
	ed     ed25519.PrivateKey
	ck     *cose.Key
	pub    *PublicKey
}

func GenerateEd25519() (*PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return newEd25519Private(priv)
}

func newEd25519Private(priv ed25519.PrivateKey) (*PrivateKey, error) {
	pub, err := NewPublicKey(SchemeEd25519, priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &PrivateKey{scheme: SchemeEd25519, ed: priv, pub: pub}, nil
}

func (k *PrivateKey) Scheme() Scheme { return k.scheme }

func (k *PrivateKey) Public() *PublicKey { return k.pub }

func (k *PrivateKey) Sign(message []byte) (*Signature, error) {
	switch k.scheme {
	case SchemeEd25519:
		return &Signature{
			KeyID:  k.pub.ID(),
			Scheme: SchemeEd25519,
			Bytes:  ed25519.Sign(k.ed, message),
		}, nil
	case SchemeCOSEES256:
		return k.signCOSE(message)
	case SchemePGPEd25519:
		return nil, ErrExternalSchemeSign
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, k.scheme)
	}
}
