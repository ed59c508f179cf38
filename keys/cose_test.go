/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package keys

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veraison/go-cose"
)

func TestCOSESignVerify(t *testing.T) {
	priv, err := GenerateCOSEES256()
	if err != nil {
		t.Fatalf("GenerateCOSEES256 error: %v", err)
	}
	message := []byte(`{"signed":"payload"}`)
	sig, err := priv.Sign(message)
	require.Nil(t, err)
	require.Equal(t, SchemeCOSEES256, sig.Scheme)
	require.Equal(t, priv.Public().ID(), sig.KeyID)

	assert.Nil(t, priv.Public().Verify(message, sig))

	tampered := append([]byte(nil), message...)
	tampered[2] ^= 0x01
	assert.ErrorIs(t, priv.Public().Verify(tampered, sig), ErrInvalidSignature)

	other, err := GenerateCOSEES256()
	require.Nil(t, err)
	assert.ErrorIs(t, other.Public().Verify(message, sig), ErrInvalidSignature)
}

func TestCOSERejectsEmbeddedPayload(t *testing.T) {
	priv, err := GenerateCOSEES256()
	require.Nil(t, err)
	message := []byte(`{"signed":"payload"}`)
	sig, err := priv.Sign(message)
	require.Nil(t, err)

	var msg cose.Sign1Message
	require.Nil(t, msg.UnmarshalCBOR(sig.Bytes))
	msg.Payload = message
	embedded, err := msg.MarshalCBOR()
	require.Nil(t, err)

	err = priv.Public().Verify(message, &Signature{
		KeyID:  sig.KeyID,
		Scheme: SchemeCOSEES256,
		Bytes:  embedded,
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCOSEKeyID(t *testing.T) {
	priv, err := GenerateCOSEES256()
	require.Nil(t, err)
	pub := priv.Public()

	// thumbprint-derived: 32 bytes of SHA-256 as hex, stable on reload
	assert.Equal(t, 64, len(pub.ID()))

	again, err := NewPublicKey(SchemeCOSEES256, pub.Material())
	require.Nil(t, err)
	assert.Equal(t, pub.ID(), again.ID())
	assert.True(t, pub.Equal(again))
}

func TestCOSEKeyFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	priv, err := GenerateCOSEES256()
	require.Nil(t, err)

	priPath, pubPath, err := priv.Save(filepath.Join(dir, "release"))
	require.Nil(t, err)

	loadedPriv, err := LoadPrivateKeyFile(priPath)
	require.Nil(t, err)
	require.Equal(t, SchemeCOSEES256, loadedPriv.Scheme())
	assert.Equal(t, priv.Public().ID(), loadedPriv.Public().ID())

	loadedPub, err := LoadPublicKeyFile(pubPath)
	require.Nil(t, err)
	assert.Equal(t, priv.Public().ID(), loadedPub.ID())

	message := []byte("artifact record")
	sig, err := loadedPriv.Sign(message)
	require.Nil(t, err)
	assert.Nil(t, loadedPub.Verify(message, sig))
}

func TestLoadPrivateKeyFileRejectsPublicCOSEKey(t *testing.T) {
	dir := t.TempDir()
	priv, err := GenerateCOSEES256()
	require.Nil(t, err)
	_, pubPath, err := priv.Save(filepath.Join(dir, "release"))
	require.Nil(t, err)

	_, err = LoadPrivateKeyFile(pubPath)
	assert.ErrorIs(t, err, ErrInvalidKey)
}
