// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the bridge configuration with precedence
// ENV > YAML file > defaults.
package config

import (
	"time"

	"github.com/ManuGH/mocapsync/internal/broadcast"
	"github.com/ManuGH/mocapsync/internal/command"
	"github.com/ManuGH/mocapsync/internal/studio"
)

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Version   string          `yaml:"-"`
	LogLevel  string          `yaml:"logLevel"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	API       APIConfig       `yaml:"api"`
	Session   SessionConfig   `yaml:"session"`
	Relay     RelayConfig     `yaml:"relay"`
	Control   ControlConfig   `yaml:"control"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// BroadcastConfig covers the UDP capture command network.
type BroadcastConfig struct {
	Send    bool   `yaml:"send"`
	Receive bool   `yaml:"receive"`
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	// Offsets are added to Port to form the destination set.
	Offsets []int `yaml:"offsets"`
}

// APIConfig locates the studio command API.
type APIConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Key     string        `yaml:"key"`
	Version string        `yaml:"version"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig holds the initial session toggles.
type SessionConfig struct {
	FrameRate float64 `yaml:"frameRate"`
	Verbose   bool    `yaml:"verbose"`
}

// RelayConfig bounds inbound relaying.
type RelayConfig struct {
	QueueSize int `yaml:"queueSize"`
	// Rate is relays per second; 0 disables limiting.
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// ControlConfig enables the local HTTP control surface when ListenAddr is set.
type ControlConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	// RateLimit is requests per minute per client.
	RateLimit int `yaml:"rateLimit"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Defaults returns the configuration used when neither file nor environment
// override a value.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		Broadcast: BroadcastConfig{
			Send:    true,
			Receive: true,
			Port:    1512,
			Address: broadcast.DefaultAddr,
			Offsets: append([]int(nil), broadcast.DefaultOffsets...),
		},
		API: APIConfig{
			Host:    studio.DefaultHost,
			Port:    studio.DefaultPort,
			Key:     studio.DefaultAPIKey,
			Version: studio.DefaultVersion,
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{
			FrameRate: command.DefaultFrameRate,
			Verbose:   true,
		},
		Relay: RelayConfig{
			QueueSize: 16,
			Rate:      0,
			Burst:     4,
		},
		Control: ControlConfig{
			RateLimit: 120,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
