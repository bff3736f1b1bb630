// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the gateway test toolkit.
type Config struct {
	Broker    BrokerConfig    `yaml:"broker"`
	HTTPMock  HTTPMockConfig  `yaml:"http_mock"`
	S3Mock    S3MockConfig    `yaml:"s3_mock"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Fault     FaultConfig     `yaml:"fault"`
	Log       LogConfig       `yaml:"log"`
}

// BrokerConfig holds mock MQTT broker settings.
type BrokerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	ReadBufferSize int           `yaml:"read_buffer_size"`
}

// HTTPMockConfig holds mock HTTP export-target settings.
type HTTPMockConfig struct {
	Addr            string        `yaml:"addr"`
	Status          int           `yaml:"status"` // response status for recorded requests
	Body            string        `yaml:"body"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// S3MockConfig holds mock S3 server settings.
type S3MockConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SimulatorConfig holds MQTT signal simulator settings.
type SimulatorConfig struct {
	BrokerURL string        `yaml:"broker_url"`
	Topic     string        `yaml:"topic"`
	ClientID  string        `yaml:"client_id"` // random suffix appended when empty
	QoS       byte          `yaml:"qos"`
	Rate      float64       `yaml:"rate"`  // publishes per second
	Count     int           `yaml:"count"` // 0 means run until stopped
	DeviceID  string        `yaml:"device_id"`
	PointName string        `yaml:"point_name"`
	Timeout   time.Duration `yaml:"timeout"` // per-publish ack wait
}

// FaultConfig holds the one-shot Modbus fault trigger settings.
type FaultConfig struct {
	Addr     string        `yaml:"addr"`
	UnitID   byte          `yaml:"unit_id"`
	Register uint16        `yaml:"register"`
	Value    uint16        `yaml:"value"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Addr:           "0.0.0.0:1883",
			ReadTimeout:    1 * time.Second,
			ReadBufferSize: 4096,
		},
		HTTPMock: HTTPMockConfig{
			Addr:            ":8090",
			Status:          200,
			ShutdownTimeout: 5 * time.Second,
		},
		S3Mock: S3MockConfig{
			Addr:            ":9090",
			ShutdownTimeout: 5 * time.Second,
		},
		Simulator: SimulatorConfig{
			BrokerURL: "tcp://127.0.0.1:1883",
			Topic:     "sensors/simulator/data",
			QoS:       1,
			Rate:      1.0,
			Count:     0,
			DeviceID:  "device-001",
			PointName: "TEMP_SENSOR",
			Timeout:   5 * time.Second,
		},
		Fault: FaultConfig{
			Addr:     "127.0.0.1:502",
			UnitID:   1,
			Register: 100,
			Value:    1,
			Timeout:  3 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
// If the file doesn't exist, returns default configuration.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Broker.Addr == "" {
		return fmt.Errorf("broker.addr cannot be empty")
	}
	if c.Broker.ReadBufferSize < 0 {
		return fmt.Errorf("broker.read_buffer_size cannot be negative")
	}

	if c.HTTPMock.Status < 100 || c.HTTPMock.Status > 599 {
		return fmt.Errorf("http_mock.status must be a valid HTTP status code")
	}

	if c.Simulator.BrokerURL == "" {
		return fmt.Errorf("simulator.broker_url cannot be empty")
	}
	if c.Simulator.Topic == "" {
		return fmt.Errorf("simulator.topic cannot be empty")
	}
	if c.Simulator.QoS > 2 {
		return fmt.Errorf("simulator.qos must be 0, 1, or 2")
	}
	if c.Simulator.Rate <= 0 {
		return fmt.Errorf("simulator.rate must be positive")
	}
	if c.Simulator.Count < 0 {
		return fmt.Errorf("simulator.count cannot be negative")
	}

	if c.Fault.Addr == "" {
		return fmt.Errorf("fault.addr cannot be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("log.format must be one of: text, json")
	}

	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
