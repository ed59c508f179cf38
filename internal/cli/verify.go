/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chaintrust/chaintrust/pkgindex"
	"github.com/chaintrust/chaintrust/trust"
)

// delegationSpec names a delegation file and the existing role that
// must vouch for it.
type delegationSpec struct {
	path   string
	parent string
}

// delegationList parses repeated --delegation FILE,PARENT flags. It
// implements pflag.Value.
type delegationList []delegationSpec

func (d *delegationList) String() string {
	parts := make([]string, len(*d))
	for i, s := range *d {
		parts[i] = s.path + "," + s.parent
	}
	return strings.Join(parts, " ")
}

func (d *delegationList) Set(v string) error {
	i := strings.LastIndex(v, ",")
	if i <= 0 || i == len(v)-1 {
		return fmt.Errorf("want FILE,PARENT, got %q", v)
	}
	*d = append(*d, delegationSpec{path: v[:i], parent: v[i+1:]})
	return nil
}

func (d *delegationList) Type() string { return "file,parent" }

var _ pflag.Value = (*delegationList)(nil)

var (
	verifyRole        string
	verifyRoots       []string
	verifyDelegations delegationList
	verifyArtifacts   []string
	verifyAllArts     bool
	verifyAt          string

	verifyCmd = &cobra.Command{
		Use:   "verify --role ROLE --root FILE... [flags] TARGET",
		Short: "Verify a document against a root trust chain",
		Long: "Bootstraps the first --root file, advances through the rest in order,\n" +
			"applies delegations, then checks that TARGET carries enough valid\n" +
			"signatures for ROLE. TARGET is a signed envelope, or a package index\n" +
			"when --artifact or --all-artifacts is given.",
		Args: cobra.ExactArgs(1),
		RunE: runVerify,
	}
)

func init() {
	verifyCmd.Flags().StringVar(&verifyRole, "role", "", "role the target must satisfy")
	verifyCmd.Flags().StringSliceVar(&verifyRoots, "root", nil, "root metadata files, lowest version first")
	verifyCmd.Flags().Var(&verifyDelegations, "delegation", "delegation file and parent role as FILE,PARENT; repeatable")
	verifyCmd.Flags().StringSliceVar(&verifyArtifacts, "artifact", nil, "verify these package index records")
	verifyCmd.Flags().BoolVar(&verifyAllArts, "all-artifacts", false, "verify every package index record")
	verifyCmd.Flags().StringVar(&verifyAt, "at", "", "RFC 3339 time for expiry evaluation (default: now)")
	_ = verifyCmd.MarkFlagRequired("role")
	_ = verifyCmd.MarkFlagRequired("root")
}

func runVerify(cmd *cobra.Command, args []string) error {
	state, err := chainFromFiles(verifyRoots)
	if err != nil {
		return chainFailure(err)
	}
	for _, spec := range verifyDelegations {
		env, err := parseEnvelopeFile(spec.path)
		if err != nil {
			return err
		}
		if state, err = state.AddDelegation(spec.parent, env); err != nil {
			return verifyFailure(fmt.Errorf("%s: %w", spec.path, err))
		}
	}

	at := time.Now()
	if verifyAt != "" {
		at, err = time.Parse(time.RFC3339, verifyAt)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
	}
	if state.Expired(at) {
		return chainFailure(fmt.Errorf("trust chain expired %s",
			state.Expires().Format(time.RFC3339)))
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	if verifyAllArts || len(verifyArtifacts) > 0 {
		return verifyIndex(cmd, state, data)
	}

	env, err := trust.ParseEnvelope(data)
	if err != nil {
		return err
	}
	if err := state.VerifyArtifact(verifyRole, env); err != nil {
		return verifyFailure(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "verified for role %s at root version %d\n",
		verifyRole, state.Version())
	return nil
}

func verifyIndex(cmd *cobra.Command, state *trust.ChainState, data []byte) error {
	ix, err := pkgindex.Parse(data)
	if err != nil {
		return err
	}
	if verifyAllArts {
		passed, err := ix.VerifyAll(state, verifyRole)
		if err != nil {
			return verifyFailure(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "all %d artifact records verified for role %s\n",
			passed, verifyRole)
		return nil
	}
	for _, name := range verifyArtifacts {
		if err := ix.VerifyArtifact(state, verifyRole, name); err != nil {
			return verifyFailure(fmt.Errorf("artifact %s: %w", name, err))
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d artifact records verified for role %s\n",
		len(verifyArtifacts), verifyRole)
	return nil
}

// chainFromFiles bootstraps the first root file at its own declared
// version and advances through the rest in order.
func chainFromFiles(rootFiles []string) (*trust.ChainState, error) {
	env, err := parseEnvelopeFile(rootFiles[0])
	if err != nil {
		return nil, err
	}
	payload, err := trust.ParseRootPayload(env.Payload)
	if err != nil {
		return nil, err
	}
	state, err := trust.BootstrapAt(env, payload.Version)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rootFiles[0], err)
	}
	for _, path := range rootFiles[1:] {
		next, err := parseEnvelopeFile(path)
		if err != nil {
			return nil, err
		}
		if state, err = state.Advance(next); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return state, nil
}

func parseEnvelopeFile(path string) (*trust.Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	env, err := trust.ParseEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return env, nil
}
