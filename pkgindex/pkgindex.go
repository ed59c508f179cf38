/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package pkgindex signs and verifies package index documents: files
// listing artifact metadata under "packages" and "packages.conda"
// sections. Signatures live in a top-level "signatures" map parallel to
// the sections, keyed by artifact name, so the index stays readable by
// tooling that knows nothing about signing.
package pkgindex

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/chaintrust/chaintrust/canonjson"
	"github.com/chaintrust/chaintrust/keys"
	"github.com/chaintrust/chaintrust/trust"
)

var (
	ErrMalformedIndex  = errors.New("malformed package index")
	ErrUnknownArtifact = errors.New("artifact not listed in the index")
)

// sections the index is signed over, in walk order. The first is
// mandatory, the rest optional.
var sections = []string{"packages", "packages.conda"}

// Index is a parsed package index document. The full decoded tree is
// retained so unrelated members survive a sign/encode round trip
// untouched.
type Index struct {
	doc map[string]any
}

// Parse decodes an index document. The "packages" section must be
// present; "packages.conda" may be absent.
func Parse(data []byte) (*Index, error) {
	v, err := canonjson.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedIndex, err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: document is not an object", ErrMalformedIndex)
	}
	if _, ok := doc["packages"]; !ok {
		return nil, fmt.Errorf("%w: no packages section", ErrMalformedIndex)
	}
	for _, section := range sections {
		raw, ok := doc[section]
		if !ok {
			continue
		}
		if _, ok := raw.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: section %s is not an object", ErrMalformedIndex, section)
		}
	}
	return &Index{doc: doc}, nil
}

// Artifacts lists every artifact name across all sections, sorted.
func (ix *Index) Artifacts() []string {
	seen := map[string]struct{}{}
	for _, section := range sections {
		for name := range ix.section(section) {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SignAll signs every artifact's metadata with each signer and installs
// the results as the index's signatures, replacing any previous
// signature map wholesale so no stale entries survive for artifacts
// that have since left the index. It returns the number of artifacts
// signed.
func (ix *Index) SignAll(signers ...keys.Signer) (int, error) {
	if len(signers) == 0 {
		return 0, errors.New("no signers given")
	}
	sigs := map[string]any{}
	count := 0
	for _, section := range sections {
		entries := ix.section(section)
		names := make([]string, 0, len(entries))
		for name := range entries {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			message, err := canonjson.Marshal(entries[name])
			if err != nil {
				return 0, fmt.Errorf("artifact %s: %w", name, err)
			}
			entry := map[string]any{}
			for _, signer := range signers {
				sig, err := signer.Sign(message)
				if err != nil {
					return 0, fmt.Errorf("artifact %s: %w", name, err)
				}
				entry[sig.KeyID] = trust.SignatureEntry(sig)
			}
			sigs[name] = entry
			count++
		}
	}
	ix.doc["signatures"] = sigs
	return count, nil
}

// Envelope synthesizes the named artifact's metadata and signatures as
// a verifiable envelope.
func (ix *Index) Envelope(name string) (*trust.Envelope, error) {
	var metadata any
	found := false
	for _, section := range sections {
		if m, ok := ix.section(section)[name]; ok {
			metadata = m
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArtifact, name)
	}

	env := &trust.Envelope{Payload: metadata, Signatures: map[string]*keys.Signature{}}
	sigsAny, ok := ix.doc["signatures"]
	if !ok {
		return env, nil
	}
	sigsMap, ok := sigsAny.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: signatures is not an object", ErrMalformedIndex)
	}
	entryAny, ok := sigsMap[name]
	if !ok {
		return env, nil
	}
	entry, ok := entryAny.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: signatures for %s is not an object", ErrMalformedIndex, name)
	}
	for keyID, v := range entry {
		sig, err := trust.ParseSignatureEntry(keyID, v)
		if err != nil {
			return nil, fmt.Errorf("%w: artifact %s: %w", ErrMalformedIndex, name, err)
		}
		env.Signatures[keyID] = sig
	}
	return env, nil
}

// VerifyArtifact checks the named artifact against the role in the
// given chain state.
func (ix *Index) VerifyArtifact(state *trust.ChainState, role, name string) error {
	env, err := ix.Envelope(name)
	if err != nil {
		return err
	}
	return state.VerifyArtifact(role, env)
}

// VerifyAll checks every listed artifact against the role, returning
// how many passed and an error naming each artifact that did not.
func (ix *Index) VerifyAll(state *trust.ChainState, role string) (int, error) {
	passed := 0
	var failures *multierror.Error
	for _, name := range ix.Artifacts() {
		if err := ix.VerifyArtifact(state, role, name); err != nil {
			failures = multierror.Append(failures, fmt.Errorf("%s: %w", name, err))
			continue
		}
		passed++
	}
	return passed, failures.ErrorOrNil()
}

// Encode renders the index in canonical form.
func (ix *Index) Encode() ([]byte, error) {
	return canonjson.Marshal(ix.doc)
}

func (ix *Index) section(name string) map[string]any {
	m, _ := ix.doc[name].(map[string]any)
	return m
}
