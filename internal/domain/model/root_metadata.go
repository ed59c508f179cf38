/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "time"

// RootMetadata is one accepted link of the root chain as stored: the
// full envelope bytes in canonical form, indexed by version.
type RootMetadata struct {
	ID        int64
	Version   uint64
	Envelope  []byte
	CreatedAt time.Time
}
