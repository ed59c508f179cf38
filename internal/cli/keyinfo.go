/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package cli

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"

	"github.com/chaintrust/chaintrust/internal/util"
	"github.com/chaintrust/chaintrust/keys"
)

var keyInfoCmd = &cobra.Command{
	Use:   "key-info FILE",
	Short: "Describe a public key file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, err := keys.LoadPublicKeyFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "scheme: %s\n", pub.Scheme())
		fmt.Fprintf(out, "keyid: %s\n", pub.ID())
		if pub.Scheme() == keys.SchemeCOSEES256 {
			var decoded any
			if err := cbor.Unmarshal(pub.Material(), &decoded); err != nil {
				return err
			}
			pretty, err := util.RenderCBORPretty(decoded)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, pretty)
			return nil
		}
		fmt.Fprintf(out, "material: %x\n", pub.Material())
		return nil
	},
}
