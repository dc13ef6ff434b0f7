// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes the bridge's Prometheus instruments.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by several vectors.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Inbound packet outcomes.
const (
	InboundAccepted    = "accepted"
	InboundSelfEcho    = "self_echo"
	InboundNotCapture  = "not_capture"
	InboundMalformed   = "malformed"
	InboundQueueFull   = "queue_full"
	InboundRateLimited = "rate_limited"
)

var (
	broadcastSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mocapsync_broadcast_sends_total",
		Help: "Broadcast capture command sends by destination port and outcome",
	}, []string{"port", "outcome"}) // outcome=success|failure

	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mocapsync_api_requests_total",
		Help: "Command API requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	apiNoResponse = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mocapsync_api_no_response_total",
		Help: "Command API replies whose body could not be decoded",
	}, []string{"endpoint"})

	inboundPackets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mocapsync_inbound_packets_total",
		Help: "Received broadcast datagrams by outcome",
	}, []string{"outcome"})

	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mocapsync_dispatch_duration_seconds",
		Help:    "Wall-clock duration of a full dispatch (all legs)",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"command", "status"})

	toggleState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mocapsync_toggle_enabled",
		Help: "Runtime toggles (1 enabled, 0 disabled)",
	}, []string{"toggle"}) // toggle=send|receive|verbose

	listenerRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mocapsync_listener_running",
		Help: "Whether the broadcast listener is running (1) or stopped (0)",
	})

	relayQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mocapsync_relay_queue_depth",
		Help: "Accepted peer commands waiting for the command API relay",
	})
)

// IncBroadcastSend records one datagram send attempt.
func IncBroadcastSend(port int, outcome string) {
	broadcastSends.WithLabelValues(strconv.Itoa(port), outcome).Inc()
}

// IncAPIRequest records one command API request.
func IncAPIRequest(endpoint, outcome string) {
	apiRequests.WithLabelValues(endpoint, outcome).Inc()
}

// IncAPINoResponse records a reply that did not decode into an envelope.
func IncAPINoResponse(endpoint string) {
	apiNoResponse.WithLabelValues(endpoint).Inc()
}

// IncInbound records the fate of one received datagram.
func IncInbound(outcome string) {
	inboundPackets.WithLabelValues(outcome).Inc()
}

// ObserveDispatch records a dispatch duration.
func ObserveDispatch(command, status string, seconds float64) {
	dispatchDuration.WithLabelValues(command, status).Observe(seconds)
}

// SetToggle publishes a runtime toggle value.
func SetToggle(name string, enabled bool) {
	toggleState.WithLabelValues(name).Set(boolValue(enabled))
}

// SetListenerRunning publishes the listener state.
func SetListenerRunning(running bool) {
	listenerRunning.Set(boolValue(running))
}

// SetRelayQueueDepth publishes the relay backlog.
func SetRelayQueueDepth(n int) {
	relayQueueDepth.Set(float64(n))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
