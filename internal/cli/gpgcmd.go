/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package cli

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chaintrust/chaintrust/internal/infra/gpg"
	"github.com/chaintrust/chaintrust/keys"
)

var gpgCmd = &cobra.Command{
	Use:   "gpg",
	Short: "OpenPGP keyring operations",
}

var gpgKeyLookupCmd = &cobra.Command{
	Use:   "key-lookup FINGERPRINT|FILE",
	Short: "Print the trust key behind a gpg keyring entry or exported key file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, err := lookupKeyArg(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "scheme: %s\n", pub.Scheme())
		fmt.Fprintf(out, "keyid: %s\n", pub.ID())
		fmt.Fprintf(out, "material: %x\n", pub.Material())
		return nil
	},
}

var (
	gpgSignFingerprint string
	gpgSignOut         string

	gpgSignCmd = &cobra.Command{
		Use:   "sign --fingerprint FPR [--out FILE] FILE",
		Short: "Attach a gpg signature to a metadata document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := gpg.NewSigner(cfg.GPGBinary, gpgSignFingerprint, cfg.GPGHome)
			if err != nil {
				return err
			}
			env, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			if err := env.SignExternal(signer); err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"keyid": signer.PublicKey().ID(),
				"file":  args[0],
			}).Debug("gpg signature attached")
			return writeEnvelope(cmd, env, outOrDefault(gpgSignOut, args[0]))
		},
	}
)

func init() {
	gpgSignCmd.Flags().StringVar(&gpgSignFingerprint, "fingerprint", "", "gpg key fingerprint to sign with")
	gpgSignCmd.Flags().StringVar(&gpgSignOut, "out", "", "output path (default: in place)")
	_ = gpgSignCmd.MarkFlagRequired("fingerprint")

	gpgCmd.AddCommand(gpgKeyLookupCmd)
	gpgCmd.AddCommand(gpgSignCmd)
}

// lookupKeyArg resolves an exported key file if arg names one, or asks
// the keyring for the fingerprint otherwise.
func lookupKeyArg(arg string) (*keys.PublicKey, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		f, err := os.Open(arg)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return keys.ImportPGPPublicKey(f)
	}
	return gpg.LookupKey(cfg.GPGBinary, arg, cfg.GPGHome)
}
