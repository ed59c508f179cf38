/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package trust

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/chaintrust/chaintrust/internal/util"
	"github.com/chaintrust/chaintrust/keys"
)

// KeyResolver supplies public key material for a key ID, nil when the
// ID is unknown. Policy evaluation takes the resolver as an argument so
// it stays decoupled from how a chain stores its keys.
type KeyResolver func(keyID string) *keys.PublicKey

// Role names a policy: accept a document once at least Threshold
// distinct keys out of KeyIDs have validly signed it.
type Role struct {
	Name      string
	KeyIDs    []string
	Threshold int
}

func (r *Role) Valid() error {
	if r.Name == "" {
		return fmt.Errorf("%w: role has no name", ErrMalformedPayload)
	}
	seen := util.NewSet[string]()
	for _, id := range r.KeyIDs {
		if id == "" {
			return fmt.Errorf("%w: role %s lists an empty key id", ErrMalformedPayload, r.Name)
		}
		if seen.Has(id) {
			return fmt.Errorf("%w: role %s lists key %s twice", ErrMalformedPayload, r.Name, shortID(id))
		}
		seen.Add(id)
	}
	if r.Threshold < 1 || r.Threshold > len(r.KeyIDs) {
		return fmt.Errorf("%w: role %s threshold %d outside 1..%d", ErrMalformedPayload, r.Name, r.Threshold, len(r.KeyIDs))
	}
	return nil
}

// Satisfied reports whether the envelope carries valid signatures from
// at least Threshold distinct authorized keys. Signatures by keys
// outside the role never count for or against it. When the threshold is
// missed, the per-key failures ride along in the returned error.
func (r *Role) Satisfied(e *Envelope, resolve KeyResolver) error {
	if err := r.Valid(); err != nil {
		return err
	}
	message, err := e.SigningBytes()
	if err != nil {
		return err
	}

	authorized := util.NewSet[string]()
	for _, id := range r.KeyIDs {
		authorized.Add(id)
	}
	candidates := make([]*keys.Signature, 0, len(e.Signatures))
	for id, sig := range e.Signatures {
		if authorized.Has(id) {
			candidates = append(candidates, sig)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].KeyID < candidates[j].KeyID })

	// checks are independent and the count is commutative, so order of
	// completion cannot change the verdict
	results := make([]error, len(candidates))
	var g errgroup.Group
	for i, sig := range candidates {
		i, sig := i, sig
		g.Go(func() error {
			key := resolve(sig.KeyID)
			if key == nil {
				results[i] = fmt.Errorf("no key material for %s", shortID(sig.KeyID))
				return nil
			}
			results[i] = key.Verify(message, sig)
			return nil
		})
	}
	_ = g.Wait()

	signers := util.NewSet[string]()
	var detail *multierror.Error
	for i, sig := range candidates {
		if results[i] == nil {
			signers.Add(sig.KeyID)
			continue
		}
		detail = multierror.Append(detail, fmt.Errorf("key %s: %w", shortID(sig.KeyID), results[i]))
	}
	if signers.Len() >= r.Threshold {
		return nil
	}

	err = fmt.Errorf("%w: role %s requires %d of %d keys, %d signed validly",
		ErrInsufficientThreshold, r.Name, r.Threshold, len(r.KeyIDs), signers.Len())
	if detail != nil {
		return multierror.Append(err, detail.Errors...)
	}
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
