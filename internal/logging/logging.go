// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the slog logger shared by the toolkit binaries.
package logging

import (
	"log/slog"
	"os"
)

// New returns a logger for the given level ("debug", "info", "warn",
// "error") and format ("text", "json"), and installs it as the default.
func New(level, format string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
