// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService       = "service"
	FieldVersion       = "version"
	FieldCorrelationID = "correlation_id"
	FieldProcessID     = "process_id"
	FieldOriginPID     = "origin_pid"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Command fields
	FieldCommand   = "command"
	FieldClipName  = "clip_name"
	FieldTimecode  = "timecode"
	FieldFrameRate = "frame_rate"
	FieldDeviceID  = "device_id"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Network fields
	FieldPort       = "port"
	FieldRemoteAddr = "remote_addr"
	FieldDest       = "dest"
	FieldBytes      = "bytes"
	FieldBaseURL    = "base_url"
	FieldEndpoint   = "endpoint"
	FieldStatus     = "status"

	// HTTP fields
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"

	// Timing fields
	FieldElapsedMS   = "elapsed_ms"
	FieldTriggeredAt = "triggered_at"
)
