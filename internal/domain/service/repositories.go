/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package service

import (
	"context"

	"github.com/chaintrust/chaintrust/internal/domain/model"
)

// RootMetadataRepository defines the interface for root chain persistence.
type RootMetadataRepository interface {
	Append(ctx context.Context, m *model.RootMetadata) (int64, error)
	FindByVersion(ctx context.Context, version uint64) (*model.RootMetadata, error)
	FindLatest(ctx context.Context) (*model.RootMetadata, error)
	ListAscending(ctx context.Context) ([]*model.RootMetadata, error)
}
