/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chaintrust/chaintrust/internal/domain"
	"github.com/chaintrust/chaintrust/internal/domain/model"
	"github.com/chaintrust/chaintrust/trust"
)

// ReplayChain rebuilds trust from the stored chain: bootstrap at the
// first stored version, then advance through every successor. Each link
// is re-verified on replay, so a tampered store cannot yield a state the
// signatures do not support.
func ReplayChain(ctx context.Context, repo RootMetadataRepository) (*trust.ChainState, error) {
	return ReplayChainAt(ctx, repo, 0)
}

// ReplayChainAt stops once the given version is reached; zero means the
// full chain.
func ReplayChainAt(ctx context.Context, repo RootMetadataRepository, version uint64) (*trust.ChainState, error) {
	records, err := repo.ListAscending(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrEmptyStore
	}

	env, err := trust.ParseEnvelope(records[0].Envelope)
	if err != nil {
		return nil, fmt.Errorf("stored root v%d: %w", records[0].Version, err)
	}
	state, err := trust.BootstrapAt(env, records[0].Version)
	if err != nil {
		return nil, fmt.Errorf("stored root v%d: %w", records[0].Version, err)
	}
	for _, rec := range records[1:] {
		if version != 0 && state.Version() >= version {
			break
		}
		env, err := trust.ParseEnvelope(rec.Envelope)
		if err != nil {
			return nil, fmt.Errorf("stored root v%d: %w", rec.Version, err)
		}
		state, err = state.Advance(env)
		if err != nil {
			return nil, fmt.Errorf("stored root v%d: %w", rec.Version, err)
		}
	}
	if version != 0 && state.Version() != version {
		return nil, fmt.Errorf("%w: root v%d", domain.ErrNotFound, version)
	}
	return state, nil
}

// InitChain verifies env as a self-signed trust anchor and stores it as
// the chain's first link. The version the operator hands over is the
// version trusted out of band.
func InitChain(ctx context.Context, repo RootMetadataRepository, raw []byte, now time.Time) (*trust.ChainState, error) {
	latest, err := repo.FindLatest(ctx)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		return nil, fmt.Errorf("%w: at v%d", domain.ErrChainExists, latest.Version)
	}

	env, err := trust.ParseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	payload, err := trust.ParseRootPayload(env.Payload)
	if err != nil {
		return nil, err
	}
	state, err := trust.BootstrapAt(env, payload.Version)
	if err != nil {
		return nil, err
	}
	if err := appendState(ctx, repo, env, state.Version(), now); err != nil {
		return nil, err
	}
	return state, nil
}

// AdvanceChain validates raw as the next root version against the
// stored chain and appends it once accepted.
func AdvanceChain(ctx context.Context, repo RootMetadataRepository, raw []byte, now time.Time) (*trust.ChainState, error) {
	state, err := ReplayChain(ctx, repo)
	if err != nil {
		return nil, err
	}
	env, err := trust.ParseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	next, err := state.Advance(env)
	if err != nil {
		return nil, err
	}
	if err := appendState(ctx, repo, env, next.Version(), now); err != nil {
		return nil, err
	}
	return next, nil
}

// appendState stores the envelope in canonical form, so bytes at rest
// are deterministic regardless of how the input file was formatted.
func appendState(ctx context.Context, repo RootMetadataRepository, env *trust.Envelope, version uint64, now time.Time) error {
	canonical, err := env.Encode()
	if err != nil {
		return err
	}
	_, err = repo.Append(ctx, &model.RootMetadata{
		Version:   version,
		Envelope:  canonical,
		CreatedAt: now,
	})
	return err
}
