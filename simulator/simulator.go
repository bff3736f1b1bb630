// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package simulator publishes simulated sensor readings to an MQTT broker.
// It is the data-injection side of the toolkit: a plain MQTT client that
// feeds the pipeline (or its mock broker) with plausible telemetry.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Config holds simulator settings.
type Config struct {
	BrokerURL string
	Topic     string
	ClientID  string // random suffix generated when empty
	QoS       byte
	Rate      float64 // publishes per second
	Count     int     // 0 means run until the context is cancelled
	DeviceID  string
	PointName string
	Timeout   time.Duration // per-publish ack wait
	Logger    *slog.Logger
}

// Reading is the JSON payload published for each simulated sample.
type Reading struct {
	DeviceID  string  `json:"device_id"`
	PointName string  `json:"point_name"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

// Simulator drives one MQTT client publishing readings at a fixed rate.
type Simulator struct {
	cfg       Config
	limiter   *rate.Limiter
	published atomic.Int64
}

// New creates a simulator with the given configuration.
func New(cfg Config) *Simulator {
	if cfg.ClientID == "" {
		cfg.ClientID = "sim-" + uuid.NewString()[:8]
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 1.0
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Simulator{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), 1),
	}
}

// Run connects, publishes cfg.Count readings (or until ctx is cancelled
// when Count is 0), and disconnects. Each publish waits for its broker
// acknowledgment at the configured QoS.
func (s *Simulator) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID).
		SetCleanSession(true).
		SetConnectTimeout(s.cfg.Timeout)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(s.cfg.Timeout) || token.Error() != nil {
		if token.Error() != nil {
			return fmt.Errorf("failed to connect to %s: %w", s.cfg.BrokerURL, token.Error())
		}
		return fmt.Errorf("connect to %s timed out", s.cfg.BrokerURL)
	}
	defer client.Disconnect(250)

	s.cfg.Logger.Info("simulator connected",
		slog.String("broker", s.cfg.BrokerURL),
		slog.String("client_id", s.cfg.ClientID),
		slog.String("topic", s.cfg.Topic))

	for i := 0; s.cfg.Count == 0 || i < s.cfg.Count; i++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil // cancelled
		}

		payload, err := json.Marshal(s.sample())
		if err != nil {
			return fmt.Errorf("failed to marshal reading: %w", err)
		}

		token := client.Publish(s.cfg.Topic, s.cfg.QoS, false, payload)
		if !token.WaitTimeout(s.cfg.Timeout) {
			return fmt.Errorf("publish ack timed out after %s", s.cfg.Timeout)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish failed: %w", err)
		}

		s.published.Add(1)
		s.cfg.Logger.Debug("published reading", slog.Int("seq", i+1))
	}

	return nil
}

// Published returns the number of successfully acknowledged publishes.
func (s *Simulator) Published() int64 {
	return s.published.Load()
}

// sample produces one reading around a plausible room temperature.
func (s *Simulator) sample() Reading {
	return Reading{
		DeviceID:  s.cfg.DeviceID,
		PointName: s.cfg.PointName,
		Value:     22.0 + rand.Float64()*8.0,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}
