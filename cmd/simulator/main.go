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
	"github.com/sensormesh/gatewaykit/simulator"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	brokerURL := flag.String("broker", "", "Broker URL override (tcp://host:port)")
	topic := flag.String("topic", "", "Topic override")
	count := flag.Int("count", -1, "Number of publishes (0 = until interrupted)")
	qos := flag.Int("qos", -1, "QoS override (0, 1, or 2)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *brokerURL != "" {
		cfg.Simulator.BrokerURL = *brokerURL
	}
	if *topic != "" {
		cfg.Simulator.Topic = *topic
	}
	if *count >= 0 {
		cfg.Simulator.Count = *count
	}
	if *qos >= 0 {
		cfg.Simulator.QoS = byte(*qos)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sim := simulator.New(simulator.Config{
		BrokerURL: cfg.Simulator.BrokerURL,
		Topic:     cfg.Simulator.Topic,
		ClientID:  cfg.Simulator.ClientID,
		QoS:       cfg.Simulator.QoS,
		Rate:      cfg.Simulator.Rate,
		Count:     cfg.Simulator.Count,
		DeviceID:  cfg.Simulator.DeviceID,
		PointName: cfg.Simulator.PointName,
		Timeout:   cfg.Simulator.Timeout,
		Logger:    logger,
	})

	if err := sim.Run(ctx); err != nil {
		slog.Error("Simulator failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Simulator finished", "published", sim.Published())
}
