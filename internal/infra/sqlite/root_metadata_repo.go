/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/chaintrust/chaintrust/internal/domain"
	"github.com/chaintrust/chaintrust/internal/domain/model"
)

// RootMetadataRepository handles root chain persistence.
type RootMetadataRepository struct {
	db *sql.DB
}

func NewRootMetadataRepository(db *sql.DB) *RootMetadataRepository {
	return &RootMetadataRepository{db: db}
}

// Append inserts the next link of the chain and returns the inserted
// id. The first insert may start the chain at any version; after that,
// the version must be exactly one above the latest stored.
func (r *RootMetadataRepository) Append(ctx context.Context, m *model.RootMetadata) (int64, error) {
	if m.Version < 1 {
		return 0, fmt.Errorf("%w: version %d", domain.ErrNotNextVersion, m.Version)
	}
	if m.Version >= math.MaxInt64 {
		return 0, errors.New("version exceeds the limit")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var latest sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(version) FROM root_metadata`).Scan(&latest); err != nil {
		return 0, fmt.Errorf("root metadata scan: %w", err)
	}
	if latest.Valid && m.Version != uint64(latest.Int64)+1 {
		return 0, fmt.Errorf("%w: have v%d, got v%d", domain.ErrNotNextVersion, latest.Int64, m.Version)
	}

	const q = `
		INSERT INTO root_metadata (version, envelope, created_at)
		VALUES (?, ?, ?)
	`
	res, err := tx.ExecContext(ctx, q, m.Version, m.Envelope, m.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

func (r *RootMetadataRepository) FindByVersion(ctx context.Context, version uint64) (*model.RootMetadata, error) {
	const q = `
		SELECT id, version, envelope, created_at
		FROM root_metadata
		WHERE version = ?
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, q, version)
	var m model.RootMetadata
	if err := row.Scan(&m.ID, &m.Version, &m.Envelope, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("root metadata scan: %w", err)
	}
	return &m, nil
}

// FindLatest returns the link with the largest version.
func (r *RootMetadataRepository) FindLatest(ctx context.Context) (*model.RootMetadata, error) {
	const q = `
		SELECT id, version, envelope, created_at
		FROM root_metadata
		ORDER BY version DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, q)
	var m model.RootMetadata
	if err := row.Scan(&m.ID, &m.Version, &m.Envelope, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("root metadata scan: %w", err)
	}
	return &m, nil
}

// ListAscending returns every stored link ordered by version.
func (r *RootMetadataRepository) ListAscending(ctx context.Context) ([]*model.RootMetadata, error) {
	const q = `
		SELECT id, version, envelope, created_at
		FROM root_metadata
		ORDER BY version ASC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*model.RootMetadata
	for rows.Next() {
		var m model.RootMetadata
		if err := rows.Scan(&m.ID, &m.Version, &m.Envelope, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("root metadata scan: %w", err)
		}
		records = append(records, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
