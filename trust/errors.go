/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package trust

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientThreshold = errors.New("threshold not met")
	ErrUnknownRole           = errors.New("role not defined in the current chain")
	ErrVersionSkip           = errors.New("root version skips ahead")
	ErrVersionRollback       = errors.New("root version rolls back")
	ErrInvalidBootstrap      = errors.New("bootstrap root rejected")
	ErrRoleShadowed          = errors.New("delegation redefines an existing role")
	ErrMalformedEnvelope     = errors.New("malformed envelope")
	ErrMalformedPayload      = errors.New("malformed metadata payload")
)

const (
	StageOldRoot = "old-root"
	StageNewRoot = "new-root"
)

// ChainUpdateError reports a rejected root transition and which signing
// check refused it: the outgoing root's approval or the incoming root's
// self-signature.
type ChainUpdateError struct {
	Version uint64 // version of the candidate root
	Stage   string // StageOldRoot or StageNewRoot
	Err     error
}

func (e *ChainUpdateError) Error() string {
	return fmt.Sprintf("root v%d rejected by %s check: %v", e.Version, e.Stage, e.Err)
}

func (e *ChainUpdateError) Unwrap() error { return e.Err }
