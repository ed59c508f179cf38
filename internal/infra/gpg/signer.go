/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package gpg drives a local GnuPG installation to produce and look up
// OpenPGP signatures, so root keys can live in GnuPG keyrings or on
// OpenPGP hardware tokens while verification stays in-process.
package gpg

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/chaintrust/chaintrust/keys"
)

// Signer signs through gpg's detached-signature interface. It satisfies
// keys.Signer.
type Signer struct {
	binary      string
	fingerprint string
	home        string
	pub         *keys.PublicKey
}

// NewSigner resolves the fingerprint's public key through gpg and binds
// a signer to it.
func NewSigner(binary, fingerprint, home string) (*Signer, error) {
	if binary == "" {
		binary = "gpg"
	}
	fingerprint = normalizeFingerprint(fingerprint)
	if fingerprint == "" {
		return nil, fmt.Errorf("gpg signer: no key fingerprint given")
	}
	pub, err := LookupKey(binary, fingerprint, home)
	if err != nil {
		return nil, err
	}
	return &Signer{binary: binary, fingerprint: fingerprint, home: home, pub: pub}, nil
}

// PublicKey returns the ed25519 point the signer's signatures verify
// against, in pgp-scheme form.
func (s *Signer) PublicKey() *keys.PublicKey { return s.pub }

// Sign has gpg produce a detached binary signature over message,
// extracts the interchange fields from the signature packet and
// re-verifies the result before returning it.
func (s *Signer) Sign(message []byte) (*keys.Signature, error) {
	raw, err := runGPG(s.binary, s.home, message,
		"--detach-sign", "--digest-algo", "SHA256", "--local-user", s.fingerprint)
	if err != nil {
		return nil, fmt.Errorf("gpg sign: %w", err)
	}
	otherHeaders, sigBytes, err := parseSignaturePacket(raw)
	if err != nil {
		return nil, fmt.Errorf("gpg sign: %w", err)
	}
	sig := &keys.Signature{
		KeyID:        s.pub.ID(),
		Scheme:       keys.SchemePGPEd25519,
		Bytes:        sigBytes,
		OtherHeaders: otherHeaders,
	}
	if err := s.pub.Verify(message, sig); err != nil {
		return nil, fmt.Errorf("gpg produced a signature that does not verify: %w", err)
	}
	return sig, nil
}

// LookupKey exports the public key for fingerprint and derives its
// pgp-scheme form, keyed by the underlying ed25519 point.
func LookupKey(binary, fingerprint, home string) (*keys.PublicKey, error) {
	if binary == "" {
		binary = "gpg"
	}
	fingerprint = normalizeFingerprint(fingerprint)
	out, err := runGPG(binary, home, nil, "--export", fingerprint)
	if err != nil {
		return nil, fmt.Errorf("gpg export: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("gpg knows no key %s", fingerprint)
	}
	pub, err := keys.ImportPGPPublicKey(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("exported key %s: %w", fingerprint, err)
	}
	return pub, nil
}

// normalizeFingerprint strips whitespace and lowercases, accepting
// fingerprints as gpg prints them.
func normalizeFingerprint(fingerprint string) string {
	return strings.ToLower(strings.Join(strings.Fields(fingerprint), ""))
}

func runGPG(binary, home string, stdin []byte, args ...string) ([]byte, error) {
	full := append([]string{"--batch", "--yes", "--quiet", "--output", "-"}, args...)
	cmd := exec.Command(binary, full...)
	if home != "" {
		cmd.Env = append(os.Environ(), "GNUPGHOME="+home)
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s",
			binary, strings.Join(args, " "), err, bytes.TrimSpace(errBuf.Bytes()))
	}
	return out.Bytes(), nil
}
