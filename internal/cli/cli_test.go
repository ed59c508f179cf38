/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrust/chaintrust/internal/config"
	"github.com/chaintrust/chaintrust/keys"
	"github.com/chaintrust/chaintrust/trust"
)

// runCLI executes one command line against a clean flag state and
// returns the combined output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags clears command state carried over from earlier Execute
// calls in the same process.
func resetFlags() {
	*cfg = *config.Default()
	keygenScheme, keygenOut = string(keys.SchemeEd25519), ""
	signKeys, signOut = nil, ""
	signArtifactsKeys, signArtifactsOut = nil, ""
	verifyRole, verifyRoots, verifyDelegations = "", nil, nil
	verifyArtifacts, verifyAllArts, verifyAt = nil, false, ""
	gpgSignFingerprint, gpgSignOut = "", ""
}

func mustKey(t *testing.T) *keys.PrivateKey {
	t.Helper()
	priv, err := keys.GenerateEd25519()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return priv
}

// writeRoot writes a root metadata file declaring a root role and a
// pkgmgr role, each threshold 1, signed by the given keys.
func writeRoot(t *testing.T, path string, version uint64, rootKey, pkgKey *keys.PrivateKey, expires *time.Time, signers ...*keys.PrivateKey) {
	t.Helper()
	payload := trust.RootPayload{
		Type:    trust.TypeRoot,
		Version: version,
		Expires: expires,
		Keys:    trust.DefineKeys(rootKey.Public(), pkgKey.Public()),
		Roles: map[string]trust.RoleDef{
			trust.RoleRoot: trust.DefineRole(1, rootKey.Public()),
			"pkgmgr":       trust.DefineRole(1, pkgKey.Public()),
		},
	}
	env, err := trust.Wrap(payload)
	require.NoError(t, err)
	for _, s := range signers {
		require.NoError(t, env.Sign(s))
	}
	data, err := env.Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestKeygenWritesKeyPair(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "release")

	out, err := runCLI(t, "keygen", "--out", base)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Len(t, lines[0], 64)
	assert.Equal(t, base+".pri", lines[1])
	assert.Equal(t, base+".pub", lines[2])

	priv, err := keys.LoadPrivateKeyFile(base + ".pri")
	require.NoError(t, err)
	assert.Equal(t, lines[0], priv.Public().ID())

	_, err = runCLI(t, "keygen", "--scheme", "rsa", "--out", base)
	assert.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestKeyInfoDescribesKeys(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, "keygen", "--out", filepath.Join(dir, "ed"))
	require.NoError(t, err)
	out, err := runCLI(t, "key-info", filepath.Join(dir, "ed.pub"))
	require.NoError(t, err)
	assert.Contains(t, out, "scheme: ed25519")
	assert.Contains(t, out, "keyid: ")

	// COSE material renders as a CBOR map with hex byte strings
	_, err = runCLI(t, "keygen", "--scheme", "cose+es256", "--out", filepath.Join(dir, "cose"))
	require.NoError(t, err)
	out, err = runCLI(t, "key-info", filepath.Join(dir, "cose.pub"))
	require.NoError(t, err)
	assert.Contains(t, out, "scheme: cose+es256")
	assert.Contains(t, out, "h'")
}

func TestSignAndVerifyEnvelope(t *testing.T) {
	dir := t.TempDir()
	rootKey, pkgKey := mustKey(t), mustKey(t)

	rootPath := filepath.Join(dir, "root.json")
	writeRoot(t, rootPath, 1, rootKey, pkgKey, nil, rootKey)

	_, pkgPri, _ := saveKey(t, dir, "pkg", pkgKey)

	docPath := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(docPath, []byte(`{"name":"demo","version":"1.0"}`), 0o644))

	signedPath := filepath.Join(dir, "signed.json")
	_, err := runCLI(t, "sign", "--key", pkgPri, "--out", signedPath, docPath)
	require.NoError(t, err)

	out, err := runCLI(t, "verify", "--role", "pkgmgr", "--root", rootPath, signedPath)
	require.NoError(t, err)
	assert.Contains(t, out, "verified for role pkgmgr at root version 1")

	// a signature from a key outside the role does not count
	wrongPath := filepath.Join(dir, "wrong.json")
	_, rootPri, _ := saveKey(t, dir, "rootkey", rootKey)
	_, err = runCLI(t, "sign", "--key", rootPri, "--out", wrongPath, docPath)
	require.NoError(t, err)

	_, err = runCLI(t, "verify", "--role", "pkgmgr", "--root", rootPath, wrongPath)
	require.Error(t, err)
	assert.Equal(t, ExitVerifyFailure, ExitCode(err))
	assert.ErrorIs(t, err, trust.ErrInsufficientThreshold)
}

func TestVerifyRotatedChainWithDelegation(t *testing.T) {
	dir := t.TempDir()
	rootKey1, rootKey2 := mustKey(t), mustKey(t)
	pkgKey1, pkgKey2 := mustKey(t), mustKey(t)
	hotfixKey := mustKey(t)

	root1 := filepath.Join(dir, "1.root.json")
	root2 := filepath.Join(dir, "2.root.json")
	writeRoot(t, root1, 1, rootKey1, pkgKey1, nil, rootKey1)
	// successor carries old-root approval and its own self-signature
	writeRoot(t, root2, 2, rootKey2, pkgKey2, nil, rootKey1, rootKey2)

	delegation := trust.DelegationPayload{
		Type: trust.TypeDelegation,
		Keys: trust.DefineKeys(hotfixKey.Public()),
		Roles: map[string]trust.RoleDef{
			"hotfix": trust.DefineRole(1, hotfixKey.Public()),
		},
	}
	delegEnv, err := trust.Wrap(delegation)
	require.NoError(t, err)
	require.NoError(t, delegEnv.Sign(pkgKey2))
	delegData, err := delegEnv.Encode()
	require.NoError(t, err)
	delegPath := filepath.Join(dir, "hotfix.json")
	require.NoError(t, os.WriteFile(delegPath, delegData, 0o644))

	target, err := trust.Wrap(map[string]any{"patch": "cve-2026-0001"})
	require.NoError(t, err)
	require.NoError(t, target.Sign(hotfixKey))
	targetData, err := target.Encode()
	require.NoError(t, err)
	targetPath := filepath.Join(dir, "patch.json")
	require.NoError(t, os.WriteFile(targetPath, targetData, 0o644))

	out, err := runCLI(t, "verify",
		"--role", "hotfix",
		"--root", root1, "--root", root2,
		"--delegation", delegPath+",pkgmgr",
		targetPath)
	require.NoError(t, err)
	assert.Contains(t, out, "root version 2")

	// out-of-order chain files fail as a chain problem, not a target one
	_, err = runCLI(t, "verify",
		"--role", "hotfix",
		"--root", root2, "--root", root1,
		"--delegation", delegPath+",pkgmgr",
		targetPath)
	require.Error(t, err)
	assert.Equal(t, ExitRootChainFailure, ExitCode(err))

	// a delegation signed by a key the rotated pkgmgr role no longer
	// lists is a verification failure, not a chain one
	require.NoError(t, delegEnv.Sign(pkgKey1))
	delete(delegEnv.Signatures, pkgKey2.Public().ID())
	staleData, err := delegEnv.Encode()
	require.NoError(t, err)
	stalePath := filepath.Join(dir, "stale-hotfix.json")
	require.NoError(t, os.WriteFile(stalePath, staleData, 0o644))

	_, err = runCLI(t, "verify",
		"--role", "hotfix",
		"--root", root1, "--root", root2,
		"--delegation", stalePath+",pkgmgr",
		targetPath)
	require.Error(t, err)
	assert.Equal(t, ExitVerifyFailure, ExitCode(err))
	assert.ErrorIs(t, err, trust.ErrInsufficientThreshold)
}

func TestVerifyExpiredChain(t *testing.T) {
	dir := t.TempDir()
	rootKey, pkgKey := mustKey(t), mustKey(t)

	expires := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rootPath := filepath.Join(dir, "root.json")
	writeRoot(t, rootPath, 1, rootKey, pkgKey, &expires, rootKey)

	target, err := trust.Wrap(map[string]any{"name": "demo"})
	require.NoError(t, err)
	require.NoError(t, target.Sign(pkgKey))
	data, err := target.Encode()
	require.NoError(t, err)
	targetPath := filepath.Join(dir, "target.json")
	require.NoError(t, os.WriteFile(targetPath, data, 0o644))

	// before expiry the chain is usable
	_, err = runCLI(t, "verify", "--role", "pkgmgr", "--root", rootPath,
		"--at", "2025-12-31T00:00:00Z", targetPath)
	require.NoError(t, err)

	_, err = runCLI(t, "verify", "--role", "pkgmgr", "--root", rootPath,
		"--at", "2026-01-02T00:00:00Z", targetPath)
	require.Error(t, err)
	assert.Equal(t, ExitRootChainFailure, ExitCode(err))
	assert.Contains(t, err.Error(), "expired")
}

func TestRootArchiveLifecycle(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "trust.db")
	rootKey1, rootKey2 := mustKey(t), mustKey(t)
	pkgKey := mustKey(t)

	root1 := filepath.Join(dir, "1.root.json")
	root2 := filepath.Join(dir, "2.root.json")
	writeRoot(t, root1, 1, rootKey1, pkgKey, nil, rootKey1)
	writeRoot(t, root2, 2, rootKey2, pkgKey, nil, rootKey1, rootKey2)

	out, err := runCLI(t, "root", "init", "--store", store, root1)
	require.NoError(t, err)
	assert.Contains(t, out, "initialized at root version 1")

	// a second init is refused
	_, err = runCLI(t, "root", "init", "--store", store, root1)
	require.Error(t, err)
	assert.Equal(t, ExitRootChainFailure, ExitCode(err))

	out, err = runCLI(t, "root", "advance", "--store", store, root2)
	require.NoError(t, err)
	assert.Contains(t, out, "advanced to root version 2")

	// replaying the same version is a rollback
	_, err = runCLI(t, "root", "advance", "--store", store, root2)
	require.Error(t, err)
	assert.Equal(t, ExitRootChainFailure, ExitCode(err))
	assert.ErrorIs(t, err, trust.ErrVersionRollback)

	out, err = runCLI(t, "root", "status", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "root version: 2")
	assert.Contains(t, out, "role root: threshold 1 of 1 keys")
	assert.Contains(t, out, "role pkgmgr: threshold 1 of 1 keys")

	// status on a store that was never initialized is a plain error
	_, err = runCLI(t, "root", "status", "--store", filepath.Join(dir, "empty.db"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestSignArtifactsAndVerifyIndex(t *testing.T) {
	dir := t.TempDir()
	rootKey, pkgKey := mustKey(t), mustKey(t)

	rootPath := filepath.Join(dir, "root.json")
	writeRoot(t, rootPath, 1, rootKey, pkgKey, nil, rootKey)
	_, pkgPri, _ := saveKey(t, dir, "pkg", pkgKey)

	indexPath := filepath.Join(dir, "repodata.json")
	index := `{
  "info": {"subdir": "linux-64"},
  "packages": {
    "alpha-1.0-0.tar.bz2": {"name": "alpha", "version": "1.0", "depends": []},
    "beta-2.1-0.tar.bz2": {"name": "beta", "version": "2.1", "depends": ["alpha"]}
  },
  "packages.conda": {
    "alpha-1.0-0.conda": {"name": "alpha", "version": "1.0", "depends": []}
  }
}`
	require.NoError(t, os.WriteFile(indexPath, []byte(index), 0o644))

	_, err := runCLI(t, "sign-artifacts", "--key", pkgPri, indexPath)
	require.NoError(t, err)

	signed, err := os.ReadFile(indexPath)
	require.NoError(t, err)
	assert.Contains(t, string(signed), `"signatures"`)
	assert.Contains(t, string(signed), pkgKey.Public().ID())

	out, err := runCLI(t, "verify", "--role", "pkgmgr", "--root", rootPath,
		"--all-artifacts", indexPath)
	require.NoError(t, err)
	assert.Contains(t, out, "all 3 artifact records verified")

	out, err = runCLI(t, "verify", "--role", "pkgmgr", "--root", rootPath,
		"--artifact", "beta-2.1-0.tar.bz2", indexPath)
	require.NoError(t, err)
	assert.Contains(t, out, "1 artifact records verified")

	// tampering with one record breaks only that record's verification;
	// the signed file is canonical, so no space after the colon
	tampered := strings.Replace(string(signed), `"version":"2.1"`, `"version":"9.9"`, 1)
	require.True(t, tampered != string(signed))
	require.NoError(t, os.WriteFile(indexPath, []byte(tampered), 0o644))

	_, err = runCLI(t, "verify", "--role", "pkgmgr", "--root", rootPath,
		"--all-artifacts", indexPath)
	require.Error(t, err)
	assert.Equal(t, ExitVerifyFailure, ExitCode(err))
	assert.Contains(t, err.Error(), "beta-2.1-0.tar.bz2")

	_, err = runCLI(t, "verify", "--role", "pkgmgr", "--root", rootPath,
		"--artifact", "alpha-1.0-0.tar.bz2", indexPath)
	require.NoError(t, err)
}

// saveKey writes priv under dir/name and returns the key ID and the two
// file paths.
func saveKey(t *testing.T, dir, name string, priv *keys.PrivateKey) (string, string, string) {
	t.Helper()
	pri, pub, err := priv.Save(filepath.Join(dir, name))
	require.NoError(t, err)
	return priv.Public().ID(), pri, pub
}
