/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package trust

import (
	"encoding/hex"
	"fmt"

	"github.com/chaintrust/chaintrust/canonjson"
	"github.com/chaintrust/chaintrust/keys"
)

// Envelope pairs a payload with signatures over its canonical form, at
// most one per key. The wire form is
//
//	{"signatures": {"<keyid>": {"scheme": "...",
//	                            "signature": "<hex>",
//	                            "other_headers": "<hex>"}},
//	 "signed": <payload>}
//
// where other_headers appears only on externally produced signatures.
type Envelope struct {
	Payload    any
	Signatures map[string]*keys.Signature
}

// Wrap canonicalizes v and wraps it as an unsigned envelope.
func Wrap(v any) (*Envelope, error) {
	raw, err := canonjson.Marshal(v)
	if err != nil {
		return nil, err
	}
	payload, err := canonjson.Decode(raw)
	if err != nil {
		return nil, err
	}
	return &Envelope{Payload: payload, Signatures: map[string]*keys.Signature{}}, nil
}

// SigningBytes returns the canonical bytes signatures are made over.
func (e *Envelope) SigningBytes() ([]byte, error) {
	return canonjson.Marshal(e.Payload)
}

// Attach adds sig, replacing any earlier signature by the same key.
func (e *Envelope) Attach(sig *keys.Signature) {
	if e.Signatures == nil {
		e.Signatures = map[string]*keys.Signature{}
	}
	e.Signatures[sig.KeyID] = sig
}

// Sign signs the canonical payload and attaches the result. Signing
// again with the same key replaces only that key's entry.
func (e *Envelope) Sign(priv *keys.PrivateKey) error {
	msg, err := e.SigningBytes()
	if err != nil {
		return err
	}
	sig, err := priv.Sign(msg)
	if err != nil {
		return err
	}
	e.Attach(sig)
	return nil
}

// SignExternal signs through an external holder, such as a GnuPG key
// that never leaves its keyring.
func (e *Envelope) SignExternal(signer keys.Signer) error {
	msg, err := e.SigningBytes()
	if err != nil {
		return err
	}
	sig, err := signer.Sign(msg)
	if err != nil {
		return err
	}
	e.Attach(sig)
	return nil
}

// SignatureEntry renders sig as the wire object filed under its key ID,
// the same shape inside envelopes and index signature maps.
func SignatureEntry(sig *keys.Signature) map[string]any {
	entry := map[string]any{
		"scheme":    string(sig.Scheme),
		"signature": hex.EncodeToString(sig.Bytes),
	}
	if len(sig.OtherHeaders) > 0 {
		entry["other_headers"] = hex.EncodeToString(sig.OtherHeaders)
	}
	return entry
}

// Encode renders the envelope in its canonical byte form, the
// representation written to disk and exchanged between parties.
func (e *Envelope) Encode() ([]byte, error) {
	sigs := make(map[string]any, len(e.Signatures))
	for id, s := range e.Signatures {
		if id != s.KeyID {
			return nil, fmt.Errorf("%w: signature filed under %s claims key %s", ErrMalformedEnvelope, shortID(id), shortID(s.KeyID))
		}
		sigs[id] = SignatureEntry(s)
	}
	return canonjson.Marshal(map[string]any{"signatures": sigs, "signed": e.Payload})
}

// ParseEnvelope decodes an envelope document. A document listing the
// same signer twice has been rewritten since signing and is rejected
// outright rather than collapsed.
func ParseEnvelope(data []byte) (*Envelope, error) {
	v, err := canonjson.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: document is not an object", ErrMalformedEnvelope)
	}
	payload, ok := doc["signed"]
	if !ok {
		return nil, fmt.Errorf("%w: no signed member", ErrMalformedEnvelope)
	}
	sigsRaw, ok := doc["signatures"]
	if !ok {
		return nil, fmt.Errorf("%w: no signatures member", ErrMalformedEnvelope)
	}
	if len(doc) != 2 {
		return nil, fmt.Errorf("%w: unexpected members beside signatures and signed", ErrMalformedEnvelope)
	}
	sigsMap, ok := sigsRaw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: signatures is not an object", ErrMalformedEnvelope)
	}

	e := &Envelope{Payload: payload, Signatures: make(map[string]*keys.Signature, len(sigsMap))}
	for id, entry := range sigsMap {
		sig, err := ParseSignatureEntry(id, entry)
		if err != nil {
			return nil, err
		}
		e.Signatures[id] = sig
	}
	return e, nil
}

// ParseSignatureEntry parses one wire signature object filed under
// keyID.
func ParseSignatureEntry(keyID string, v any) (*keys.Signature, error) {
	entry, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: signature for %s is not an object", ErrMalformedEnvelope, shortID(keyID))
	}
	scheme, ok := entry["scheme"].(string)
	if !ok || scheme == "" {
		return nil, fmt.Errorf("%w: signature for %s has no scheme", ErrMalformedEnvelope, shortID(keyID))
	}
	sigHex, ok := entry["signature"].(string)
	if !ok || sigHex == "" {
		return nil, fmt.Errorf("%w: signature for %s has no signature", ErrMalformedEnvelope, shortID(keyID))
	}
	raw, err := hex.DecodeString(sigHex)
	if err != nil {
		return nil, fmt.Errorf("%w: signature for %s is not hex: %v", ErrMalformedEnvelope, shortID(keyID), err)
	}

	sig := &keys.Signature{KeyID: keyID, Scheme: keys.Scheme(scheme), Bytes: raw}
	for field := range entry {
		switch field {
		case "scheme", "signature":
		case "other_headers":
			ohHex, ok := entry[field].(string)
			if !ok || ohHex == "" {
				return nil, fmt.Errorf("%w: other_headers for %s is not a string", ErrMalformedEnvelope, shortID(keyID))
			}
			oh, err := hex.DecodeString(ohHex)
			if err != nil {
				return nil, fmt.Errorf("%w: other_headers for %s is not hex: %v", ErrMalformedEnvelope, shortID(keyID), err)
			}
			sig.OtherHeaders = oh
		default:
			return nil, fmt.Errorf("%w: unknown signature field %q for %s", ErrMalformedEnvelope, field, shortID(keyID))
		}
	}
	return sig, nil
}
