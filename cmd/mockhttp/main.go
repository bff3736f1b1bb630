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
	"github.com/sensormesh/gatewaykit/mockhttp"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	addr := flag.String("addr", "", "Listen address override")
	status := flag.Int("status", 0, "Response status override")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.HTTPMock.Addr = *addr
	}
	if *status != 0 {
		cfg.HTTPMock.Status = *status
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := mockhttp.New(mockhttp.Config{
		Addr:            cfg.HTTPMock.Addr,
		Status:          cfg.HTTPMock.Status,
		Body:            cfg.HTTPMock.Body,
		ShutdownTimeout: cfg.HTTPMock.ShutdownTimeout,
		Logger:          logger,
	})

	if err := srv.Listen(ctx); err != nil {
		slog.Error("Mock HTTP target failed", "error", err)
		os.Exit(1)
	}
}
