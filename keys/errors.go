/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package keys

import "errors"

var (
	ErrUnsupportedScheme  = errors.New("unsupported signature scheme")
	ErrInvalidSignature   = errors.New("signature verification failed")
	ErrInvalidKey         = errors.New("invalid key material")
	ErrSchemeMismatch     = errors.New("key cannot verify this signature scheme")
	ErrExternalSchemeSign = errors.New("scheme signs through an external signer only")
)
