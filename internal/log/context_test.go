// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextWithCorrelationID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		id   string
		want string
	}{
		{name: "nil context", ctx: nil, id: "cid-1", want: "cid-1"},
		{name: "background context", ctx: context.Background(), id: "cid-2", want: "cid-2"},
		{name: "empty id", ctx: context.Background(), id: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithCorrelationID(tt.ctx, tt.id)
			if got := CorrelationIDFromContext(ctx); got != tt.want {
				t.Errorf("CorrelationIDFromContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCorrelationIDFromNilContext(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	if got := CorrelationIDFromContext(nil); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}

func TestWithContextAddsCorrelationField(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := ContextWithCorrelationID(context.Background(), "abc")
	l := WithContext(ctx, base)
	l.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry[FieldCorrelationID] != "abc" {
		t.Errorf("correlation_id = %v, want abc", entry[FieldCorrelationID])
	}
}

func TestWithContextWithoutFieldsKeepsLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	l := WithContext(context.Background(), base)
	l.Info().Msg("plain")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if _, ok := entry[FieldCorrelationID]; ok {
		t.Error("did not expect correlation_id field")
	}
}

func TestConfigureAttachesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "svc-test", Version: "v0.0.1"})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("dispatch")
	l.Debug().Str(FieldEvent, "test.event").Msg("configured")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry[FieldService] != "svc-test" {
		t.Errorf("service = %v", entry[FieldService])
	}
	if entry[FieldVersion] != "v0.0.1" {
		t.Errorf("version = %v", entry[FieldVersion])
	}
	if entry[FieldComponent] != "dispatch" {
		t.Errorf("component = %v", entry[FieldComponent])
	}
	if entry[FieldEvent] != "test.event" {
		t.Errorf("event = %v", entry[FieldEvent])
	}
}
