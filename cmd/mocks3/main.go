// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sensormesh/gatewaykit/config"
	"github.com/sensormesh/gatewaykit/internal/logging"
	"github.com/sensormesh/gatewaykit/mocks3"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	addr := flag.String("addr", "", "Listen address override")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.S3Mock.Addr = *addr
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := mocks3.New(mocks3.Config{
		Addr:            cfg.S3Mock.Addr,
		ShutdownTimeout: cfg.S3Mock.ShutdownTimeout,
		Logger:          logger,
	})

	if err := srv.Listen(ctx); err != nil {
		slog.Error("Mock S3 server failed", "error", err)
		os.Exit(1)
	}
}
