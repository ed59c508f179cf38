/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chaintrust/chaintrust/internal/domain"
	"github.com/chaintrust/chaintrust/internal/domain/service"
	"github.com/chaintrust/chaintrust/internal/infra/sqlite"
)

var rootChainCmd = &cobra.Command{
	Use:   "root",
	Short: "Operate the on-disk root trust archive",
}

var rootInitCmd = &cobra.Command{
	Use:   "init FILE",
	Short: "Initialize the archive with an out-of-band trusted root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(ctx context.Context, repo service.RootMetadataRepository) error {
			state, err := service.InitChain(ctx, repo, data, time.Now())
			if err != nil {
				return chainFailure(err)
			}
			log.WithFields(log.Fields{
				"version": state.Version(),
				"store":   cfg.StorePath,
			}).Info("chain initialized")
			fmt.Fprintf(cmd.OutOrStdout(), "initialized at root version %d\n", state.Version())
			return nil
		})
	},
}

var rootAdvanceCmd = &cobra.Command{
	Use:   "advance FILE",
	Short: "Validate a successor root and append it to the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(ctx context.Context, repo service.RootMetadataRepository) error {
			state, err := service.AdvanceChain(ctx, repo, data, time.Now())
			if err != nil {
				return chainFailure(err)
			}
			log.WithFields(log.Fields{
				"version": state.Version(),
				"store":   cfg.StorePath,
			}).Info("chain advanced")
			fmt.Fprintf(cmd.OutOrStdout(), "advanced to root version %d\n", state.Version())
			return nil
		})
	},
}

var rootStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Replay the archive and report the trusted state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, repo service.RootMetadataRepository) error {
			state, err := service.ReplayChain(ctx, repo)
			if errors.Is(err, domain.ErrEmptyStore) {
				return fmt.Errorf("%s: %w", cfg.StorePath, err)
			}
			if err != nil {
				return chainFailure(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "root version: %d\n", state.Version())
			if exp := state.Expires(); exp != nil {
				fmt.Fprintf(out, "expires: %s\n", exp.Format(time.RFC3339))
				if state.Expired(time.Now()) {
					fmt.Fprintln(out, "status: EXPIRED")
				}
			}
			for _, name := range state.RoleNames() {
				role, err := state.ResolveRole(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "role %s: threshold %d of %d keys\n",
					role.Name, role.Threshold, len(role.KeyIDs))
			}
			return nil
		})
	},
}

func init() {
	rootChainCmd.AddCommand(rootInitCmd)
	rootChainCmd.AddCommand(rootAdvanceCmd)
	rootChainCmd.AddCommand(rootStatusCmd)
}

// withStore opens the trust archive for one command invocation.
func withStore(ctx context.Context, fn func(context.Context, service.RootMetadataRepository) error) error {
	db, err := sqlite.InitDB(ctx, cfg.StorePath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sqlite.CloseDB(db); cerr != nil {
			log.Warnf("close trust archive: %v", cerr)
		}
	}()
	return fn(ctx, sqlite.NewRootMetadataRepository(db))
}
