/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// GenerateCOSEES256 creates a fresh P-256 key for the cose+es256 scheme.
func GenerateCOSEES256() (*PrivateKey, error) {
	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	ck, err := cose.NewKeyEC2(cose.AlgorithmES256,
		ec.PublicKey.X.Bytes(), ec.PublicKey.Y.Bytes(), ec.D.Bytes())
	if err != nil {
		return nil, err
	}
	return newCOSEPrivateKey(ck)
}

func newCOSEPrivateKey(ck *cose.Key) (*PrivateKey, error) {
	// fail at load time, not first use, when private params are missing
	if _, err := ck.Signer(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pubAny, err := ck.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	ecPub, ok := pubAny.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: cose es256 key is not an EC2 key", ErrInvalidKey)
	}
	material, err := coseES256Material(ecPub)
	if err != nil {
		return nil, err
	}
	pub, err := NewPublicKey(SchemeCOSEES256, material)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{scheme: SchemeCOSEES256, ck: ck, pub: pub}, nil
}

// coseES256Material encodes the public half as a CBOR COSE_Key, the form
// stored in role key tables and on disk.
func coseES256Material(pub *ecdsa.PublicKey) ([]byte, error) {
	ck, err := cose.NewKeyEC2(cose.AlgorithmES256, pub.X.Bytes(), pub.Y.Bytes(), nil)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(ck)
}

func newCOSEPublicKey(material []byte) (*PublicKey, error) {
	ck, err := parseCOSEES256Key(material)
	if err != nil {
		return nil, err
	}
	tp, err := ck.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	m := append([]byte(nil), material...)
	return &PublicKey{scheme: SchemeCOSEES256, material: m, id: hex.EncodeToString(tp)}, nil
}

func parseCOSEES256Key(material []byte) (*cose.Key, error) {
	var ck cose.Key
	if err := cbor.Unmarshal(material, &ck); err != nil {
		return nil, fmt.Errorf("%w: not a COSE key: %v", ErrInvalidKey, err)
	}
	if ck.Algorithm != cose.AlgorithmES256 {
		return nil, fmt.Errorf("%w: cose key algorithm %v is not ES256", ErrInvalidKey, ck.Algorithm)
	}
	return &ck, nil
}

func (k *PrivateKey) signCOSE(message []byte) (*Signature, error) {
	signer, err := k.ck.Signer()
	if err != nil {
		return nil, err
	}
	msg := cose.NewSign1Message()
	msg.Headers.Protected[cose.HeaderLabelAlgorithm] = cose.AlgorithmES256
	msg.Payload = message
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, err
	}
	// ship detached: the canonical payload travels in the envelope
	msg.Payload = nil
	raw, err := msg.MarshalCBOR()
	if err != nil {
		return nil, err
	}
	return &Signature{KeyID: k.pub.ID(), Scheme: SchemeCOSEES256, Bytes: raw}, nil
}

func verifyCOSE(material, message []byte, sig *Signature) error {
	ck, err := parseCOSEES256Key(material)
	if err != nil {
		return err
	}
	pub, err := ck.PublicKey()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	verifier, err := cose.NewVerifier(cose.AlgorithmES256, pub)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(sig.Bytes); err != nil {
		return fmt.Errorf("%w: malformed COSE_Sign1: %v", ErrInvalidSignature, err)
	}
	if msg.Payload != nil {
		return fmt.Errorf("%w: COSE_Sign1 must carry a detached payload", ErrInvalidSignature)
	}
	msg.Payload = message
	if err := msg.Verify(nil, verifier); err != nil {
		return ErrInvalidSignature
	}
	return nil
}
