// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sensormesh/gatewaykit/broker"
	"github.com/sensormesh/gatewaykit/config"
	"github.com/sensormesh/gatewaykit/internal/logging"
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
		cfg.Broker.Addr = *addr
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	b := broker.New(broker.Config{
		Addr:           cfg.Broker.Addr,
		ReadTimeout:    cfg.Broker.ReadTimeout,
		ReadBufferSize: cfg.Broker.ReadBufferSize,
		Logger:         logger,
	})
	if err := b.Start(); err != nil {
		slog.Error("Failed to start mock broker", "error", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			if n := b.Store().Len(); n > 0 {
				slog.Info("publish records held", "count", n)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("Received shutdown signal", "signal", sig.String())

	if err := b.Stop(); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
}
