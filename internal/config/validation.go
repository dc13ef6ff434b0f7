// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"

	"github.com/ManuGH/mocapsync/internal/validate"
)

// Validate checks a fully merged configuration.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError(validate.ErrInvalidLogLevel.Field, validate.ErrInvalidLogLevel.Message, cfg.LogLevel)
	}

	v.Port("broadcast.port", cfg.Broadcast.Port)
	v.IPv4("broadcast.address", cfg.Broadcast.Address)
	if len(cfg.Broadcast.Offsets) == 0 {
		v.AddError("broadcast.offsets", "at least one destination offset is required", cfg.Broadcast.Offsets)
	}
	for _, off := range cfg.Broadcast.Offsets {
		v.Port(fmt.Sprintf("broadcast.offsets[%d]", off), cfg.Broadcast.Port+off)
	}

	v.Host("api.host", cfg.API.Host)
	v.Port("api.port", cfg.API.Port)
	v.NotEmpty("api.key", cfg.API.Key)
	v.NotEmpty("api.version", cfg.API.Version)
	v.PositiveDuration("api.timeout", cfg.API.Timeout)

	v.FloatRange("session.frameRate", cfg.Session.FrameRate, 1, 1000)

	v.Range("relay.queueSize", cfg.Relay.QueueSize, 1, 4096)
	v.FloatRange("relay.rate", cfg.Relay.Rate, 0, 10000)
	v.Positive("relay.burst", cfg.Relay.Burst)

	if cfg.Control.ListenAddr != "" {
		v.ListenAddr("control.listenAddr", cfg.Control.ListenAddr)
		v.Positive("control.rateLimit", cfg.Control.RateLimit)
	}

	if cfg.Telemetry.Enabled {
		if _, err := validate.ParseExporter(cfg.Telemetry.Exporter); err != nil {
			v.AddError(validate.ErrInvalidExporter.Field, validate.ErrInvalidExporter.Message, cfg.Telemetry.Exporter)
		}
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
