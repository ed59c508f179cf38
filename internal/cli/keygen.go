/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package cli

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chaintrust/chaintrust/keys"
)

var (
	keygenScheme string
	keygenOut    string

	keygenCmd = &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			var priv *keys.PrivateKey
			var err error
			switch keys.Scheme(keygenScheme) {
			case keys.SchemeEd25519:
				priv, err = keys.GenerateEd25519()
			case keys.SchemeCOSEES256:
				priv, err = keys.GenerateCOSEES256()
			default:
				return fmt.Errorf("cannot generate %q keys", keygenScheme)
			}
			if err != nil {
				return err
			}
			pri, pub, err := priv.Save(keygenOut)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"scheme": keygenScheme,
				"keyid":  priv.Public().ID(),
			}).Info("generated key pair")
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n%s\n", priv.Public().ID(), pri, pub)
			return nil
		},
	}
)

func init() {
	keygenCmd.Flags().StringVar(&keygenScheme, "scheme", string(keys.SchemeEd25519),
		"key scheme: ed25519 or cose+es256")
	keygenCmd.Flags().StringVar(&keygenOut, "out", "",
		"output base path; writes BASE.pri and BASE.pub")
	_ = keygenCmd.MarkFlagRequired("out")
}
