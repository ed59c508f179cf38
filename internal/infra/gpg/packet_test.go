/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package gpg

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"math/bits"
	"testing"

	"github.com/chaintrust/chaintrust/keys"
)

// hashedSubpackets is a minimal hashed area: one signature
// creation-time subpacket.
var hashedSubpackets = []byte{0x05, 0x02, 0x60, 0x9d, 0x20, 0x00}

func hashedHeaders() []byte {
	oh := []byte{4, sigTypeBinary, pubKeyAlgoEdDSA, hashAlgoSHA256, 0, byte(len(hashedSubpackets))}
	return append(oh, hashedSubpackets...)
}

func mpi(t *testing.T, b []byte) []byte {
	t.Helper()
	for len(b) > 1 && b[0] == 0 {
		b = b[1:]
	}
	n := (len(b)-1)*8 + bits.Len8(b[0])
	if n == 0 {
		t.Fatal("zero MPI in test data")
	}
	return append([]byte{byte(n >> 8), byte(n)}, b...)
}

// sigBody assembles a v4 signature packet body around the given
// signature halves, with an unhashed issuer subpacket the way gpg
// emits one.
func sigBody(t *testing.T, r, s []byte) []byte {
	t.Helper()
	issuer := []byte{0x09, 0x10, 1, 2, 3, 4, 5, 6, 7, 8}
	body := hashedHeaders()
	body = append(body, 0, byte(len(issuer)))
	body = append(body, issuer...)
	body = append(body, 0xab, 0xcd) // left 16 digest bits
	body = append(body, mpi(t, r)...)
	body = append(body, mpi(t, s)...)
	return body
}

func newFormatPacket(t *testing.T, body []byte) []byte {
	t.Helper()
	if len(body) >= 192 {
		t.Fatal("test body needs a multi-byte length")
	}
	return append([]byte{0xc2, byte(len(body))}, body...)
}

func oldFormatPacket(t *testing.T, body []byte) []byte {
	t.Helper()
	if len(body) > 0xff {
		t.Fatal("test body needs a multi-byte length")
	}
	return append([]byte{0x88, byte(len(body))}, body...)
}

func TestParseSignaturePacket(t *testing.T) {
	point, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	message := []byte(`{"type":"root","version":1}`)
	oh := hashedHeaders()
	raw := ed25519.Sign(priv, keys.PGPDigest(message, oh))
	body := sigBody(t, raw[:32], raw[32:])

	for name, packet := range map[string][]byte{
		"new format": newFormatPacket(t, body),
		"old format": oldFormatPacket(t, body),
	} {
		t.Run(name, func(t *testing.T) {
			gotOH, gotSig, err := parseSignaturePacket(packet)
			if err != nil {
				t.Fatalf("parseSignaturePacket: %v", err)
			}
			if !bytes.Equal(gotOH, oh) {
				t.Fatalf("hashed headers %x, want %x", gotOH, oh)
			}
			if !bytes.Equal(gotSig, raw) {
				t.Fatalf("signature %x, want %x", gotSig, raw)
			}
			pub, err := keys.NewPublicKey(keys.SchemePGPEd25519, point)
			if err != nil {
				t.Fatal(err)
			}
			sig := &keys.Signature{
				KeyID:        pub.ID(),
				Scheme:       keys.SchemePGPEd25519,
				Bytes:        gotSig,
				OtherHeaders: gotOH,
			}
			if err := pub.Verify(message, sig); err != nil {
				t.Fatalf("extracted signature does not verify: %v", err)
			}
		})
	}
}

func TestParseSignaturePacketPadsShortMPIs(t *testing.T) {
	r := bytes.Repeat([]byte{0x7f}, 31)
	s := bytes.Repeat([]byte{0x3c}, 30)
	_, sig, err := parseSignaturePacket(newFormatPacket(t, sigBody(t, r, s)))
	if err != nil {
		t.Fatalf("parseSignaturePacket: %v", err)
	}
	want := make([]byte, 64)
	copy(want[1:32], r)
	copy(want[34:], s)
	if !bytes.Equal(sig, want) {
		t.Fatalf("signature %x, want %x", sig, want)
	}
}

func TestParseSignaturePacketRejects(t *testing.T) {
	valid := sigBody(t, bytes.Repeat([]byte{0x11}, 32), bytes.Repeat([]byte{0x22}, 32))
	mutate := func(i int, v byte) []byte {
		body := append([]byte(nil), valid...)
		body[i] = v
		return newFormatPacket(t, body)
	}
	// offset of the r MPI bit count: hashed headers, unhashed length
	// and subpacket, left 16 bits
	rOff := len(hashedHeaders()) + 2 + 10 + 2

	cases := map[string][]byte{
		"empty":                nil,
		"no header bit":        {0x00, 0x00},
		"wrong tag new format": append([]byte{0xc1, byte(len(valid))}, valid...),
		"wrong tag old format": append([]byte{0x84, byte(len(valid))}, valid...),
		"partial length":       {0xc2, 0xe0, 0x00},
		"indeterminate length": append([]byte{0x8b}, valid...),
		"body overruns input":  {0xc2, 0x50, 0x04, 0x00},
		"version 3":            mutate(0, 3),
		"not binary document":  mutate(1, 0x10),
		"not eddsa":            mutate(2, 19),
		"not sha256":           mutate(3, 10),
		"hashed area overrun":  mutate(4, 0xff),
		"oversize mpi":         mutate(rOff, 0x02),
		"truncated mpi":        newFormatPacket(t, valid[:len(valid)-5]),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := parseSignaturePacket(raw); err == nil {
				t.Fatal("malformed packet accepted")
			}
		})
	}
}
