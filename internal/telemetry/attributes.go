// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by dispatch spans.
const (
	CommandKindKey   = "command.kind"
	CommandClipKey   = "command.clip"
	CommandOriginKey = "command.origin_pid"

	LegBroadcastKey = "dispatch.leg.broadcast"
	LegHTTPKey      = "dispatch.leg.http"
	DestKey         = "broadcast.dest"
	EndpointKey     = "studio.endpoint"
	StatusKey       = "dispatch.status"

	ErrorTypeKey = "error.type"
)

// CommandAttributes describes the command being dispatched.
func CommandAttributes(kind, clip string, origin int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(CommandKindKey, kind),
		attribute.Int(CommandOriginKey, origin),
	}
	if clip != "" {
		attrs = append(attrs, attribute.String(CommandClipKey, clip))
	}
	return attrs
}

// LegAttributes records which transports a dispatch will use.
func LegAttributes(broadcast, http bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(LegBroadcastKey, broadcast),
		attribute.Bool(LegHTTPKey, http),
	}
}

// ErrorAttributes tags a span with an error classification.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ErrorTypeKey, errorType),
	}
}
