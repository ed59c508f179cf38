/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package gpg

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var errMalformedPacket = errors.New("malformed signature packet")

const (
	sigPacketTag    = 2
	sigTypeBinary   = 0x00
	pubKeyAlgoEdDSA = 22
	hashAlgoSHA256  = 8
)

// parseSignaturePacket pulls the two pieces the interchange format
// stores out of a binary detached-signature packet: the hashed header
// octets (version byte through the end of the hashed subpackets) and
// the 64-byte EdDSA signature.
func parseSignaturePacket(raw []byte) (otherHeaders, sig []byte, err error) {
	body, err := packetBody(raw)
	if err != nil {
		return nil, nil, err
	}
	if len(body) < 6 {
		return nil, nil, fmt.Errorf("%w: truncated", errMalformedPacket)
	}
	if body[0] != 4 {
		return nil, nil, fmt.Errorf("%w: version %d is not 4", errMalformedPacket, body[0])
	}
	if body[1] != sigTypeBinary {
		return nil, nil, fmt.Errorf("%w: signature type %#02x is not binary document", errMalformedPacket, body[1])
	}
	if body[2] != pubKeyAlgoEdDSA {
		return nil, nil, fmt.Errorf("%w: public key algorithm %d is not EdDSA", errMalformedPacket, body[2])
	}
	if body[3] != hashAlgoSHA256 {
		return nil, nil, fmt.Errorf("%w: hash algorithm %d is not SHA-256", errMalformedPacket, body[3])
	}

	hashedLen := int(binary.BigEndian.Uint16(body[4:6]))
	end := 6 + hashedLen
	if len(body) < end+2 {
		return nil, nil, fmt.Errorf("%w: hashed subpackets overrun", errMalformedPacket)
	}
	otherHeaders = append([]byte(nil), body[:end]...)

	unhashedLen := int(binary.BigEndian.Uint16(body[end : end+2]))
	off := end + 2 + unhashedLen
	off += 2 // left 16 bits of the digest

	r, off, err := readMPI(body, off)
	if err != nil {
		return nil, nil, err
	}
	s, _, err := readMPI(body, off)
	if err != nil {
		return nil, nil, err
	}
	sig = make([]byte, 64)
	copy(sig[32-len(r):32], r)
	copy(sig[64-len(s):], s)
	return otherHeaders, sig, nil
}

// packetBody strips the packet framing, old or new format.
func packetBody(raw []byte) ([]byte, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: too short", errMalformedPacket)
	}
	b := raw[0]
	if b&0x80 == 0 {
		return nil, fmt.Errorf("%w: no packet header", errMalformedPacket)
	}
	var tag, bodyLen, off int
	if b&0x40 != 0 {
		tag = int(b & 0x3f)
		switch l := int(raw[1]); {
		case l < 192:
			bodyLen, off = l, 2
		case l < 224:
			if len(raw) < 3 {
				return nil, fmt.Errorf("%w: truncated length", errMalformedPacket)
			}
			bodyLen, off = (l-192)<<8+int(raw[2])+192, 3
		case l == 255:
			if len(raw) < 6 {
				return nil, fmt.Errorf("%w: truncated length", errMalformedPacket)
			}
			bodyLen, off = int(binary.BigEndian.Uint32(raw[2:6])), 6
		default:
			return nil, fmt.Errorf("%w: partial-length packets unsupported", errMalformedPacket)
		}
	} else {
		tag = int(b>>2) & 0x0f
		switch b & 0x03 {
		case 0:
			bodyLen, off = int(raw[1]), 2
		case 1:
			if len(raw) < 3 {
				return nil, fmt.Errorf("%w: truncated length", errMalformedPacket)
			}
			bodyLen, off = int(binary.BigEndian.Uint16(raw[1:3])), 3
		case 2:
			if len(raw) < 5 {
				return nil, fmt.Errorf("%w: truncated length", errMalformedPacket)
			}
			bodyLen, off = int(binary.BigEndian.Uint32(raw[1:5])), 5
		default:
			return nil, fmt.Errorf("%w: indeterminate length unsupported", errMalformedPacket)
		}
	}
	if tag != sigPacketTag {
		return nil, fmt.Errorf("%w: tag %d is not a signature", errMalformedPacket, tag)
	}
	if len(raw) < off+bodyLen {
		return nil, fmt.Errorf("%w: body overruns input", errMalformedPacket)
	}
	return raw[off : off+bodyLen], nil
}

// readMPI reads one multiprecision integer. EdDSA signature halves
// never exceed 32 octets.
func readMPI(body []byte, off int) ([]byte, int, error) {
	if off < 0 || len(body) < off+2 {
		return nil, 0, fmt.Errorf("%w: truncated MPI", errMalformedPacket)
	}
	bits := int(binary.BigEndian.Uint16(body[off : off+2]))
	n := (bits + 7) / 8
	off += 2
	if n == 0 || n > 32 {
		return nil, 0, fmt.Errorf("%w: MPI of %d bits", errMalformedPacket, bits)
	}
	if len(body) < off+n {
		return nil, 0, fmt.Errorf("%w: truncated MPI", errMalformedPacket)
	}
	return body[off : off+n], off + n, nil
}
