// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack_RecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	r := NewRouter(StackConfig{Logger: zerolog.New(&buf)})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body["error"])
	assert.Equal(t, "req-1", body["request_id"])
	assert.Contains(t, buf.String(), `"event":"http.panic_recovered"`)
}

func TestStack_PanicResponseCarriesGeneratedRequestID(t *testing.T) {
	r := NewRouter(StackConfig{Logger: zerolog.Nop()})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body["request_id"])
	assert.Equal(t, w.Header().Get(HeaderRequestID), body["request_id"])
}

func TestRecoverer_FallsBackToResponseHeader(t *testing.T) {
	h := Recoverer(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(HeaderRequestID, "hdr-7")
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "hdr-7", body["request_id"])
}

func TestStack_RequestIDGeneratedAndEchoed(t *testing.T) {
	r := NewRouter(StackConfig{Logger: zerolog.Nop()})
	var seen string
	r.Get("/id", func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(HeaderRequestID))
}

func TestStack_AccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	r := NewRouter(StackConfig{Logger: logger, EnableLogging: true})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(HeaderRequestID, "abc")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"event":"http.request"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"request_id":"abc"`)
	assert.Contains(t, out, `"message":"inside"`)
}

func TestStack_MetricsUseRoutePattern(t *testing.T) {
	r := NewRouter(StackConfig{Logger: zerolog.Nop(), EnableMetrics: true})
	r.Get("/things/{id}", func(w http.ResponseWriter, r *http.Request) {})

	before := testutil.CollectAndCount(httpRequestDuration, "mocapsync_http_request_duration_seconds")
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/2", nil))
	after := testutil.CollectAndCount(httpRequestDuration, "mocapsync_http_request_duration_seconds")

	assert.Equal(t, 1, after-before)
}

func TestShouldTraceSkipsProbes(t *testing.T) {
	assert.False(t, shouldTrace(httptest.NewRequest(http.MethodGet, "/healthz", nil)))
	assert.False(t, shouldTrace(httptest.NewRequest(http.MethodGet, "/metrics", nil)))
	assert.True(t, shouldTrace(httptest.NewRequest(http.MethodPost, "/api/v1/recording/start", nil)))
}
