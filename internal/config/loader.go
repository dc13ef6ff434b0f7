// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/mocapsync/internal/validate"
)

// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
var ErrUnknownConfigField = errors.New("unknown config field")

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the configured file path, possibly empty.
func (l *Loader) Path() string {
	return l.configPath
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: defaults -> strict file parse -> env -> validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version
	normalize(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// normalize rewrites case-insensitive settings to their canonical spelling.
func normalize(cfg *AppConfig) {
	if lvl, err := validate.ParseLogLevel(cfg.LogLevel); err == nil {
		cfg.LogLevel = string(lvl)
	}
	if exp, err := validate.ParseExporter(cfg.Telemetry.Exporter); err == nil {
		cfg.Telemetry.Exporter = string(exp)
	}
}

// loadFile decodes the YAML file over cfg with STRICT parsing: unknown
// fields are fatal. Keys absent from the file keep their current value.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	cfg.Broadcast.Send = l.envBool(EnvBroadcastSend, cfg.Broadcast.Send)
	cfg.Broadcast.Receive = l.envBool(EnvBroadcastReceive, cfg.Broadcast.Receive)
	cfg.Broadcast.Port = l.envInt(EnvBroadcastPort, cfg.Broadcast.Port)
	cfg.Broadcast.Address = l.envString(EnvBroadcastAddr, cfg.Broadcast.Address)

	cfg.API.Host = l.envString(EnvAPIHost, cfg.API.Host)
	cfg.API.Port = l.envInt(EnvAPIPort, cfg.API.Port)
	cfg.API.Key = l.envString(EnvAPIKey, cfg.API.Key)
	cfg.API.Timeout = l.envDuration(EnvAPITimeout, cfg.API.Timeout)

	cfg.Session.FrameRate = l.envFloat(EnvFrameRate, cfg.Session.FrameRate)
	cfg.Session.Verbose = l.envBool(EnvVerbose, cfg.Session.Verbose)

	cfg.Relay.Rate = l.envFloat(EnvRelayRate, cfg.Relay.Rate)
	cfg.Control.ListenAddr = l.envString(EnvControlListen, cfg.Control.ListenAddr)

	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = l.envString(EnvTelemetryTarget, cfg.Telemetry.Endpoint)
}
