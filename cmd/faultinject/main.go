// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/sensormesh/gatewaykit/config"
	"github.com/sensormesh/gatewaykit/faultinject"
	"github.com/sensormesh/gatewaykit/internal/logging"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	addr := flag.String("addr", "", "Modbus/TCP endpoint override (host:port)")
	register := flag.Int("register", -1, "Holding register override")
	value := flag.Int("value", -1, "Register value override")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Fault.Addr = *addr
	}
	if *register >= 0 {
		cfg.Fault.Register = uint16(*register)
	}
	if *value >= 0 {
		cfg.Fault.Value = uint16(*value)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	err = faultinject.Trigger(faultinject.Config{
		Addr:     cfg.Fault.Addr,
		UnitID:   cfg.Fault.UnitID,
		Register: cfg.Fault.Register,
		Value:    cfg.Fault.Value,
		Timeout:  cfg.Fault.Timeout,
		Logger:   logger,
	})
	if err != nil {
		slog.Error("Fault trigger failed", "error", err)
		os.Exit(1)
	}
}
