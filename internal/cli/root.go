/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package cli is the chaintrust command tree. Commands wire the core
// library packages to files, the sqlite trust archive and the local
// gpg installation; no trust decision lives here.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/chaintrust/chaintrust/internal/config"
)

var (
	cfg = config.Default()

	rootCmd = &cobra.Command{
		Use:   "chaintrust",
		Short: "Sign and verify package distribution metadata",
		Long: "chaintrust signs structured metadata documents and verifies them\n" +
			"against a versioned, threshold-signed root of trust.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return InitLog(cfg.LogLevel, cfg.LogFile)
		},
	}
)

func init() {
	// flags parse after this, so command-line values win over the
	// CHAINTRUST_* environment, which wins over defaults
	cfg.LoadEnv()

	rootCmd.PersistentFlags().StringVar(&cfg.StorePath, "store", cfg.StorePath, "sqlite trust archive path")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file; \"console\" logs to stderr")
	rootCmd.PersistentFlags().StringVar(&cfg.GPGBinary, "gpg", cfg.GPGBinary, "gpg binary for OpenPGP operations")
	rootCmd.PersistentFlags().StringVar(&cfg.GPGHome, "gpg-home", cfg.GPGHome, "GNUPGHOME for gpg invocations")

	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(keyInfoCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(signArtifactsCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(rootChainCmd)
	rootCmd.AddCommand(gpgCmd)
}

// Execute runs the command tree. The caller maps the returned error to
// a process exit code with ExitCode.
func Execute() error {
	return rootCmd.Execute()
}
