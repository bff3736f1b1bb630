// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package faultinject triggers a fault condition in a device under test by
// writing a single Modbus holding register. One shot, no retries: the
// point is to flip an alarm input and get out of the way.
package faultinject

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/goburrow/modbus"
)

// Config holds the trigger settings.
type Config struct {
	Addr     string // Modbus/TCP endpoint, host:port
	UnitID   byte
	Register uint16
	Value    uint16
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Trigger connects to the Modbus/TCP endpoint and writes the configured
// value to the configured holding register.
func Trigger(cfg Config) error {
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	handler := modbus.NewTCPClientHandler(cfg.Addr)
	handler.Timeout = cfg.Timeout
	handler.SlaveId = cfg.UnitID

	if err := handler.Connect(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Addr, err)
	}
	defer handler.Close()

	client := modbus.NewClient(handler)
	if _, err := client.WriteSingleRegister(cfg.Register, cfg.Value); err != nil {
		return fmt.Errorf("failed to write register %d: %w", cfg.Register, err)
	}

	cfg.Logger.Info("fault trigger written",
		slog.String("addr", cfg.Addr),
		slog.Int("unit", int(cfg.UnitID)),
		slog.Int("register", int(cfg.Register)),
		slog.Int("value", int(cfg.Value)))
	return nil
}
