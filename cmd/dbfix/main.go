// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/sensormesh/gatewaykit/dbfix"
	"github.com/sensormesh/gatewaykit/internal/logging"
)

func main() {
	checkOnly := flag.Bool("check", false, "Only check the header, do not repair")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if flag.NArg() != 1 {
		slog.Error("Usage: dbfix [-check] <database file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	logging.New(*logLevel, "text")

	if *checkOnly {
		if err := dbfix.Check(path); err != nil {
			slog.Error("Header check failed", "path", path, "error", err)
			os.Exit(1)
		}
		slog.Info("Header OK", "path", path)
		return
	}

	backup, err := dbfix.Repair(path)
	if err != nil {
		slog.Error("Repair failed", "path", path, "error", err)
		os.Exit(1)
	}
	if backup == "" {
		slog.Info("Header already valid, nothing to do", "path", path)
	} else {
		slog.Info("Header repaired", "path", path, "backup", backup)
	}

	if err := dbfix.Verify(path); err != nil {
		slog.Error("Integrity check failed after repair", "path", path, "error", err)
		os.Exit(1)
	}
	slog.Info("Integrity check passed", "path", path)
}
