/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package trust

import (
	"fmt"
	"sort"
	"time"

	"github.com/chaintrust/chaintrust/keys"
)

// ChainState is the trust in force after a sequence of accepted root
// versions, plus any delegation documents adopted on top. Values are
// immutable: Advance and AddDelegation return fresh states and never
// touch the receiver, so readers can hold a snapshot while a writer
// moves the chain forward.
type ChainState struct {
	version uint64
	expires *time.Time
	keys    map[string]*keys.PublicKey
	roles   map[string]*Role
}

// Bootstrap establishes trust from an out-of-band root envelope at
// version 1. The candidate must satisfy its own declared root role with
// its own declared keys; nothing else vouches for it.
func Bootstrap(env *Envelope) (*ChainState, error) {
	return BootstrapAt(env, 1)
}

// BootstrapAt is Bootstrap for chains whose agreed starting version is
// not 1, such as when older history has been archived away.
func BootstrapAt(env *Envelope, version uint64) (*ChainState, error) {
	if version < 1 {
		return nil, fmt.Errorf("%w: starting version %d", ErrInvalidBootstrap, version)
	}
	payload, table, err := parseRoot(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBootstrap, err)
	}
	if payload.Version != version {
		return nil, fmt.Errorf("%w: version %d where %d was agreed out of band", ErrInvalidBootstrap, payload.Version, version)
	}
	if err := selfSigned(payload, table, env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBootstrap, err)
	}
	return adopt(payload, table), nil
}

// Advance validates next as the successor root and returns the state
// with its policy adopted. Checks run in order: exact version
// increment, approval by the currently trusted root role, then the
// candidate's own self-signature. Any failure leaves the receiver as
// the state in force; adoption is all or nothing.
func (s *ChainState) Advance(next *Envelope) (*ChainState, error) {
	payload, table, err := parseRoot(next.Payload)
	if err != nil {
		return nil, err
	}
	switch {
	case payload.Version <= s.version:
		return nil, fmt.Errorf("%w: have v%d, got v%d", ErrVersionRollback, s.version, payload.Version)
	case payload.Version > s.version+1:
		return nil, fmt.Errorf("%w: have v%d, got v%d", ErrVersionSkip, s.version, payload.Version)
	}
	if err := s.roles[RoleRoot].Satisfied(next, s.KeyResolver()); err != nil {
		return nil, &ChainUpdateError{Version: payload.Version, Stage: StageOldRoot, Err: err}
	}
	if err := selfSigned(payload, table, next); err != nil {
		return nil, &ChainUpdateError{Version: payload.Version, Stage: StageNewRoot, Err: err}
	}
	return adopt(payload, table), nil
}

// AddDelegation adopts a delegation document's keys and roles under the
// authority of parentRole, which the document's signatures must satisfy
// in the current state. Added roles may not collide with any role
// already in force; changes to existing policy go through Advance only.
func (s *ChainState) AddDelegation(parentRole string, env *Envelope) (*ChainState, error) {
	parent, err := s.ResolveRole(parentRole)
	if err != nil {
		return nil, err
	}
	payload, table, err := parseDelegation(env.Payload)
	if err != nil {
		return nil, err
	}
	if err := parent.Satisfied(env, s.KeyResolver()); err != nil {
		return nil, fmt.Errorf("delegation under %s: %w", parentRole, err)
	}
	for name := range payload.Roles {
		if _, exists := s.roles[name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrRoleShadowed, name)
		}
	}

	next := &ChainState{
		version: s.version,
		expires: earliest(s.expires, payload.Expires),
		keys:    make(map[string]*keys.PublicKey, len(s.keys)+len(table)),
		roles:   make(map[string]*Role, len(s.roles)+len(payload.Roles)),
	}
	for id, k := range s.keys {
		next.keys[id] = k
	}
	for id, k := range table {
		next.keys[id] = k
	}
	for name, r := range s.roles {
		next.roles[name] = r
	}
	for name, def := range payload.Roles {
		next.roles[name] = &Role{Name: name, KeyIDs: append([]string(nil), def.KeyIDs...), Threshold: def.Threshold}
	}
	return next, nil
}

// ResolveRole returns the named role as defined in this state.
func (s *ChainState) ResolveRole(name string) (*Role, error) {
	role, ok := s.roles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
	return role, nil
}

// VerifyArtifact answers whether the envelope is acceptable under the
// named role in this state. The state is never modified.
func (s *ChainState) VerifyArtifact(roleName string, e *Envelope) error {
	role, err := s.ResolveRole(roleName)
	if err != nil {
		return err
	}
	return role.Satisfied(e, s.KeyResolver())
}

// KeyResolver resolves key IDs against the adopted key table.
func (s *ChainState) KeyResolver() KeyResolver {
	table := s.keys
	return func(id string) *keys.PublicKey { return table[id] }
}

// Version returns the root version this state was adopted from.
func (s *ChainState) Version() uint64 { return s.version }

// Expires returns the earliest expiry among the adopted documents, nil
// when none declared one.
func (s *ChainState) Expires() *time.Time {
	if s.expires == nil {
		return nil
	}
	t := *s.expires
	return &t
}

// Expired reports whether the policy has expired at now. The clock is
// the caller's; nothing in this package reads one.
func (s *ChainState) Expired(now time.Time) bool {
	return s.expires != nil && now.After(*s.expires)
}

// RoleNames lists the roles in force, sorted.
func (s *ChainState) RoleNames() []string {
	names := make([]string, 0, len(s.roles))
	for name := range s.roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// selfSigned checks the candidate envelope against the root role the
// candidate itself declares.
func selfSigned(payload *RootPayload, table map[string]*keys.PublicKey, env *Envelope) error {
	def := payload.Roles[RoleRoot]
	role := &Role{Name: RoleRoot, KeyIDs: def.KeyIDs, Threshold: def.Threshold}
	return role.Satisfied(env, func(id string) *keys.PublicKey { return table[id] })
}

func adopt(payload *RootPayload, table map[string]*keys.PublicKey) *ChainState {
	roles := make(map[string]*Role, len(payload.Roles))
	for name, def := range payload.Roles {
		roles[name] = &Role{Name: name, KeyIDs: append([]string(nil), def.KeyIDs...), Threshold: def.Threshold}
	}
	return &ChainState{
		version: payload.Version,
		expires: payload.Expires,
		keys:    table,
		roles:   roles,
	}
}

func earliest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	default:
		return a
	}
}
