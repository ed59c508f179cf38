/*
 * Copyright (c) 2026 Chaintrust Authors. All rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package cli

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConsole keeps log output on stderr instead of a file.
const LogConsole = "console"

// InitLog parses and sets the log level and routes output either to
// stderr or to a rotated log file.
func InitLog(logLevel, logFile string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	if logFile != "" && logFile != LogConsole {
		log.SetOutput(io.Writer(&lumberjack.Logger{
			Filename:   filepath.ToSlash(logFile),
			MaxSize:    500, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
		}))
	} else {
		log.SetOutput(os.Stderr)
	}
	log.SetLevel(level)
	return nil
}
