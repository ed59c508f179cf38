/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package cli

import "errors"

// Exit codes are a fixed contract for scripting around the CLI.
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitRootChainFailure = 10
	ExitVerifyFailure    = 20
)

// exitError tags an error with the process exit code it maps to.
// errors.Is/As still reach the underlying cause.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func chainFailure(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: ExitRootChainFailure, err: err}
}

func verifyFailure(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: ExitVerifyFailure, err: err}
}

// ExitCode maps the error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitFailure
}
