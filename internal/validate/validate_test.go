// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestValidator_Port(t *testing.T) {
	tests := []struct {
		name    string
		port    int
		wantErr bool
	}{
		{"valid port 80", 80, false},
		{"valid port 8080", 8080, false},
		{"valid port 65535", 65535, false},
		{"valid port 1", 1, false},
		{"invalid port 0", 0, true},
		{"invalid port -1", -1, true},
		{"invalid port 65536", 65536, true},
		{"invalid port 100000", 100000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Port("testPort", tt.port)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_Range(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		min     int
		max     int
		wantErr bool
	}{
		{"in range", 5, 1, 10, false},
		{"at min", 1, 1, 10, false},
		{"at max", 10, 1, 10, false},
		{"below min", 0, 1, 10, true},
		{"above max", 11, 1, 10, true},
		{"negative range", -5, -10, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Range("testValue", tt.value, tt.min, tt.max)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}


func TestValidator_NotEmpty(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"non-empty", "hello", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"tab only", "\t", true},
		{"newline only", "\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.NotEmpty("testField", tt.value)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_OneOf(t *testing.T) {
	allowed := []string{"red", "green", "blue"}

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid red", "red", false},
		{"valid green", "green", false},
		{"valid blue", "blue", false},
		{"invalid yellow", "yellow", true},
		{"invalid empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.OneOf("testField", tt.value, allowed)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_Positive(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		wantErr bool
	}{
		{"positive 1", 1, false},
		{"positive 100", 100, false},
		{"zero", 0, true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Positive("testField", tt.value)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_NonNegative(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		wantErr bool
	}{
		{"positive 1", 1, false},
		{"zero", 0, false},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.NonNegative("testField", tt.value)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_Custom(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		validator func(interface{}) error
		wantErr   bool
	}{
		{
			name:  "passes custom validation",
			value: "hello",
			validator: func(v interface{}) error {
				s, ok := v.(string)
				if !ok {
					return errors.New("expected string value")
				}
				if len(s) >= 3 {
					return nil
				}
				return errors.New("too short")
			},
			wantErr: false,
		},
		{
			name:  "fails custom validation",
			value: "hi",
			validator: func(v interface{}) error {
				s, ok := v.(string)
				if !ok {
					return errors.New("expected string value")
				}
				if len(s) >= 3 {
					return nil
				}
				return errors.New("too short")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Custom("testField", tt.value, tt.validator)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  bool
	}{
		{LogLevelTrace, true},
		{LogLevelDebug, true},
		{LogLevelInfo, true},
		{LogLevelWarn, true},
		{LogLevelError, true},
		{LogLevel("invalid"), false},
		{LogLevel(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := tt.level.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LogLevelDebug, false},
		{"info", LogLevelInfo, false},
		{"warn", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{" WARN ", LogLevelWarn, false},
		{"Trace", LogLevelTrace, false},
		{"invalid", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLogLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseExporter(t *testing.T) {
	tests := []struct {
		input   string
		want    Exporter
		wantErr bool
	}{
		{"grpc", ExporterGRPC, false},
		{"HTTP", ExporterHTTP, false},
		{"zipkin", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseExporter(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseExporter() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseExporter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidator_MultipleErrors(t *testing.T) {
	v := New()

	v.Port("broadcast.port", 0)
	v.IPv4("broadcast.address", "")
	v.NotEmpty("api.key", "")

	if v.IsValid() {
		t.Fatal("expected errors, got none")
	}
	if got := len(v.Errors()); got != 3 {
		t.Errorf("expected 3 errors, got %d", got)
	}

	msg := v.Err().Error()
	for _, field := range []string{"broadcast.port", "broadcast.address", "api.key"} {
		if !strings.Contains(msg, field) {
			t.Errorf("error message should mention %q: %s", field, msg)
		}
	}
}

func TestValidator_Chaining(t *testing.T) {
	v := New()

	v.Port("broadcast.port", 1512)
	v.IPv4("broadcast.address", "255.255.255.255")
	v.Host("api.host", "127.0.0.1")
	v.FloatRange("session.frameRate", 30, 1, 1000)
	v.PositiveDuration("api.timeout", 5*time.Second)
	v.ListenAddr("control.listenAddr", ":8088")

	if !v.IsValid() {
		t.Errorf("unexpected errors: %v", v.Err())
	}
}

func TestValidator_FloatRange(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"in range", 29.97, false},
		{"lower bound", 1, false},
		{"below", 0, true},
		{"above", 1001, true},
		{"nan", math.NaN(), true},
		{"inf", math.Inf(1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.FloatRange("rate", tt.value, 1, 1000)
			if tt.wantErr == v.IsValid() {
				t.Errorf("FloatRange(%v) valid=%v, wantErr=%v", tt.value, v.IsValid(), tt.wantErr)
			}
		})
	}
}

func TestValidator_IPv4(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"255.255.255.255", false},
		{"192.168.1.255", false},
		{"::1", true},
		{"not-an-ip", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			v := New()
			v.IPv4("addr", tt.value)
			if tt.wantErr == v.IsValid() {
				t.Errorf("IPv4(%q) valid=%v, wantErr=%v", tt.value, v.IsValid(), tt.wantErr)
			}
		})
	}
}

func TestValidator_Host(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"127.0.0.1", false},
		{"studio.local", false},
		{"", true},
		{"127.0.0.1:14053", true},
		{"http://127.0.0.1", true},
		{"user@host", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			v := New()
			v.Host("host", tt.value)
			if tt.wantErr == v.IsValid() {
				t.Errorf("Host(%q) valid=%v, wantErr=%v", tt.value, v.IsValid(), tt.wantErr)
			}
		})
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{":8088", false},
		{"127.0.0.1:0", false},
		{"8088", true},
		{"localhost:http", true},
		{"localhost:70000", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			v := New()
			v.ListenAddr("listen", tt.value)
			if tt.wantErr == v.IsValid() {
				t.Errorf("ListenAddr(%q) valid=%v, wantErr=%v", tt.value, v.IsValid(), tt.wantErr)
			}
		})
	}
}

func TestValidator_PositiveDuration(t *testing.T) {
	v := New()
	v.PositiveDuration("timeout", 0)
	v.PositiveDuration("timeout", -time.Second)
	v.PositiveDuration("timeout", time.Millisecond)
	if got := len(v.Errors()); got != 2 {
		t.Errorf("expected 2 errors, got %d", got)
	}
}

func TestValidationError_SingleMessage(t *testing.T) {
	v := New()
	v.Positive("relay.queueSize", 0)
	want := "validation failed for relay.queueSize: value must be positive, got 0"
	if got := v.Err().Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	var ve ValidationError
	if !errors.As(v.Err(), &ve) || len(ve.Errors()) != 1 {
		t.Errorf("expected ValidationError with one entry, got %#v", v.Err())
	}
}
