/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package cli

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chaintrust/chaintrust/canonjson"
	"github.com/chaintrust/chaintrust/keys"
	"github.com/chaintrust/chaintrust/pkgindex"
	"github.com/chaintrust/chaintrust/trust"
)

var (
	signKeys []string
	signOut  string

	signCmd = &cobra.Command{
		Use:   "sign --key FILE.pri [--out FILE] FILE",
		Short: "Sign a metadata document",
		Long: "Wraps FILE in a signed envelope if it is not one already, then attaches\n" +
			"one signature per key. Re-signing with a key already present replaces\n" +
			"only that key's entry.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			for _, path := range signKeys {
				priv, err := keys.LoadPrivateKeyFile(path)
				if err != nil {
					return err
				}
				if err := env.Sign(priv); err != nil {
					return err
				}
				log.WithFields(log.Fields{
					"keyid": priv.Public().ID(),
					"file":  args[0],
				}).Debug("signature attached")
			}
			return writeEnvelope(cmd, env, outOrDefault(signOut, args[0]))
		},
	}
)

var (
	signArtifactsKeys []string
	signArtifactsOut  string

	signArtifactsCmd = &cobra.Command{
		Use:   "sign-artifacts --key FILE.pri [--out FILE] INDEX.json",
		Short: "Sign every artifact record of a package index",
		Long: "Signs the canonical form of each record under \"packages\" and\n" +
			"\"packages.conda\" and writes the signatures into the index's top-level\n" +
			"\"signatures\" map, replacing whatever was there.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ix, err := pkgindex.Parse(data)
			if err != nil {
				return err
			}
			signers := make([]keys.Signer, 0, len(signArtifactsKeys))
			for _, path := range signArtifactsKeys {
				priv, err := keys.LoadPrivateKeyFile(path)
				if err != nil {
					return err
				}
				signers = append(signers, priv)
			}
			count, err := ix.SignAll(signers...)
			if err != nil {
				return err
			}
			out, err := ix.Encode()
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"records": count,
				"keys":    len(signers),
				"file":    args[0],
			}).Info("index signed")
			return writeOut(cmd, out, outOrDefault(signArtifactsOut, args[0]))
		},
	}
)

func init() {
	signCmd.Flags().StringSliceVar(&signKeys, "key", nil, "private key file; repeatable")
	signCmd.Flags().StringVar(&signOut, "out", "", "output path (default: in place)")
	_ = signCmd.MarkFlagRequired("key")

	signArtifactsCmd.Flags().StringSliceVar(&signArtifactsKeys, "key", nil, "private key file; repeatable")
	signArtifactsCmd.Flags().StringVar(&signArtifactsOut, "out", "", "output path (default: in place)")
	_ = signArtifactsCmd.MarkFlagRequired("key")
}

// loadDocument reads path as a signed envelope, wrapping the document
// in a fresh unsigned envelope when it is not one yet.
func loadDocument(path string) (*trust.Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	env, err := trust.ParseEnvelope(data)
	if err == nil {
		return env, nil
	}
	if !errors.Is(err, trust.ErrMalformedEnvelope) {
		return nil, err
	}
	value, derr := canonjson.Decode(data)
	if derr != nil {
		return nil, fmt.Errorf("%s: %w", path, derr)
	}
	return trust.Wrap(value)
}

func writeEnvelope(cmd *cobra.Command, env *trust.Envelope, path string) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	return writeOut(cmd, data, path)
}

// writeOut writes to path, or to stdout for "" or "-".
func writeOut(cmd *cobra.Command, data []byte, path string) error {
	data = append(data, '\n')
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func outOrDefault(out, fallback string) string {
	if out != "" {
		return out
	}
	return fallback
}
