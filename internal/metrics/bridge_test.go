// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, gauge.Write(metric))
	return metric.GetGauge().GetValue()
}

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func getCounterVecValue(t *testing.T, counterVec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	return getCounterValue(t, counterVec.WithLabelValues(labels...))
}

func TestIncBroadcastSend(t *testing.T) {
	before := getCounterVecValue(t, broadcastSends, "1512", OutcomeSuccess)
	IncBroadcastSend(1512, OutcomeSuccess)
	IncBroadcastSend(1512, OutcomeSuccess)
	assert.Equal(t, before+2, getCounterVecValue(t, broadcastSends, "1512", OutcomeSuccess))
}

func TestIncAPIRequestAndNoResponse(t *testing.T) {
	before := getCounterVecValue(t, apiRequests, "recording/start", OutcomeFailure)
	IncAPIRequest("recording/start", OutcomeFailure)
	assert.Equal(t, before+1, getCounterVecValue(t, apiRequests, "recording/start", OutcomeFailure))

	beforeNR := getCounterVecValue(t, apiNoResponse, "calibrate")
	IncAPINoResponse("calibrate")
	assert.Equal(t, beforeNR+1, getCounterVecValue(t, apiNoResponse, "calibrate"))
}

func TestIncInbound(t *testing.T) {
	for _, outcome := range []string{InboundAccepted, InboundSelfEcho, InboundNotCapture, InboundMalformed, InboundQueueFull, InboundRateLimited} {
		before := getCounterVecValue(t, inboundPackets, outcome)
		IncInbound(outcome)
		assert.Equal(t, before+1, getCounterVecValue(t, inboundPackets, outcome), outcome)
	}
}

func TestToggleAndListenerGauges(t *testing.T) {
	SetToggle("send", true)
	assert.Equal(t, 1.0, getGaugeValue(t, toggleState.WithLabelValues("send")))
	SetToggle("send", false)
	assert.Equal(t, 0.0, getGaugeValue(t, toggleState.WithLabelValues("send")))

	SetListenerRunning(true)
	assert.Equal(t, 1.0, getGaugeValue(t, listenerRunning))
	SetListenerRunning(false)
	assert.Equal(t, 0.0, getGaugeValue(t, listenerRunning))

	SetRelayQueueDepth(3)
	assert.Equal(t, 3.0, getGaugeValue(t, relayQueueDepth))
}

func TestPromhttpExposure(t *testing.T) {
	ObserveDispatch("start", "ok", 0.01)

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "mocapsync_dispatch_duration_seconds"), "dispatch histogram not exposed")
}
