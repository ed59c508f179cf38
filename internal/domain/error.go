/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package domain

import "errors"

var (
	ErrNotFound       = errors.New("item not found")
	ErrNotNextVersion = errors.New("root version is not the next in the chain")
	ErrEmptyStore     = errors.New("no root metadata stored")
	ErrChainExists    = errors.New("root chain already initialized")
)
