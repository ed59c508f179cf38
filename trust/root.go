/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package trust

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/chaintrust/chaintrust/canonjson"
	"github.com/chaintrust/chaintrust/keys"
)

const (
	TypeRoot       = "root"
	TypeDelegation = "delegation"

	// RoleRoot is the self-referential role every root payload must
	// declare: the keys that approve the next root version.
	RoleRoot = "root"
)

// KeyDef is a key as written in metadata: its scheme tag and hex
// material.
type KeyDef struct {
	Scheme   keys.Scheme `json:"scheme"`
	Material string      `json:"material"`
}

// RoleDef is a role as written in metadata.
type RoleDef struct {
	KeyIDs    []string `json:"keyids"`
	Threshold int      `json:"threshold"`
}

// RootPayload is the signed body of root metadata: the key table and
// role table in force once this version is adopted.
type RootPayload struct {
	Type    string             `json:"type"`
	Version uint64             `json:"version"`
	Expires *time.Time         `json:"expires,omitempty"`
	Keys    map[string]KeyDef  `json:"keys"`
	Roles   map[string]RoleDef `json:"roles"`
}

// DelegationPayload is the signed body of a delegation document: keys
// and roles added under the authority of an existing role. The document
// is self-contained, declaring the material for every key its roles
// reference.
type DelegationPayload struct {
	Type    string             `json:"type"`
	Expires *time.Time         `json:"expires,omitempty"`
	Keys    map[string]KeyDef  `json:"keys"`
	Roles   map[string]RoleDef `json:"roles"`
}

// DefineKeys renders a key table from public keys, indexed by derived
// ID.
func DefineKeys(pubs ...*keys.PublicKey) map[string]KeyDef {
	table := make(map[string]KeyDef, len(pubs))
	for _, p := range pubs {
		table[p.ID()] = KeyDef{Scheme: p.Scheme(), Material: hex.EncodeToString(p.Material())}
	}
	return table
}

// DefineRole renders a role entry naming the given keys.
func DefineRole(threshold int, pubs ...*keys.PublicKey) RoleDef {
	ids := make([]string, 0, len(pubs))
	for _, p := range pubs {
		ids = append(ids, p.ID())
	}
	sort.Strings(ids)
	return RoleDef{KeyIDs: ids, Threshold: threshold}
}

// ParseRootPayload validates and types an envelope payload as root
// metadata. Every key must parse under its declared scheme and derive
// the ID it is filed under; every role must reference declared keys
// only and carry a threshold its key list can meet.
func ParseRootPayload(payload any) (*RootPayload, error) {
	p, _, err := parseRoot(payload)
	return p, err
}

// ParseDelegationPayload validates and types an envelope payload as a
// delegation document, under the same key and role rules as root
// metadata.
func ParseDelegationPayload(payload any) (*DelegationPayload, error) {
	p, _, err := parseDelegation(payload)
	return p, err
}

func parseRoot(payload any) (*RootPayload, map[string]*keys.PublicKey, error) {
	var p RootPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, nil, err
	}
	if p.Type != TypeRoot {
		return nil, nil, fmt.Errorf("%w: type %q is not %q", ErrMalformedPayload, p.Type, TypeRoot)
	}
	if p.Version < 1 {
		return nil, nil, fmt.Errorf("%w: root version %d", ErrMalformedPayload, p.Version)
	}
	if _, ok := p.Roles[RoleRoot]; !ok {
		return nil, nil, fmt.Errorf("%w: no %q role declared", ErrMalformedPayload, RoleRoot)
	}
	table, err := buildKeys(p.Keys)
	if err != nil {
		return nil, nil, err
	}
	if err := validateRoles(p.Roles, p.Keys); err != nil {
		return nil, nil, err
	}
	return &p, table, nil
}

func parseDelegation(payload any) (*DelegationPayload, map[string]*keys.PublicKey, error) {
	var p DelegationPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, nil, err
	}
	if p.Type != TypeDelegation {
		return nil, nil, fmt.Errorf("%w: type %q is not %q", ErrMalformedPayload, p.Type, TypeDelegation)
	}
	if len(p.Roles) == 0 {
		return nil, nil, fmt.Errorf("%w: delegation adds no roles", ErrMalformedPayload)
	}
	if _, ok := p.Roles[RoleRoot]; ok {
		return nil, nil, fmt.Errorf("%w: delegation may not define %q", ErrMalformedPayload, RoleRoot)
	}
	table, err := buildKeys(p.Keys)
	if err != nil {
		return nil, nil, err
	}
	if err := validateRoles(p.Roles, p.Keys); err != nil {
		return nil, nil, err
	}
	return &p, table, nil
}

// decodePayload types an already-decoded payload tree via its canonical
// bytes, so struct tags and strictness come from one place.
func decodePayload(payload any, dst any) error {
	raw, err := canonjson.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return nil
}

// buildKeys materializes the key table, checking each entry's material
// against its scheme and its derived ID against the index.
func buildKeys(defs map[string]KeyDef) (map[string]*keys.PublicKey, error) {
	table := make(map[string]*keys.PublicKey, len(defs))
	for id, def := range defs {
		material, err := hex.DecodeString(def.Material)
		if err != nil {
			return nil, fmt.Errorf("%w: key %s material is not hex: %v", ErrMalformedPayload, shortID(id), err)
		}
		pub, err := keys.NewPublicKey(def.Scheme, material)
		if err != nil {
			return nil, fmt.Errorf("%w: key %s: %v", ErrMalformedPayload, shortID(id), err)
		}
		if pub.ID() != id {
			return nil, fmt.Errorf("%w: key filed under %s derives id %s", ErrMalformedPayload, shortID(id), shortID(pub.ID()))
		}
		table[id] = pub
	}
	return table, nil
}

func validateRoles(roles map[string]RoleDef, keyDefs map[string]KeyDef) error {
	for name, def := range roles {
		role := &Role{Name: name, KeyIDs: def.KeyIDs, Threshold: def.Threshold}
		if err := role.Valid(); err != nil {
			return err
		}
		for _, id := range def.KeyIDs {
			if _, ok := keyDefs[id]; !ok {
				return fmt.Errorf("%w: role %s references undeclared key %s", ErrMalformedPayload, name, shortID(id))
			}
		}
	}
	return nil
}
