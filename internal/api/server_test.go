// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/mocapsync/internal/broadcast"
	"github.com/ManuGH/mocapsync/internal/listener"
	"github.com/ManuGH/mocapsync/internal/session"
	"github.com/ManuGH/mocapsync/internal/studio"
)

type fakeSender struct {
	mu       sync.Mutex
	payloads []string
}

func (f *fakeSender) Send(payload []byte) []broadcast.SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, string(payload))
	return []broadcast.SendResult{
		{Dest: netip.MustParseAddrPort("255.255.255.255:1512"), Bytes: len(payload)},
		{Dest: netip.MustParseAddrPort("255.255.255.255:1510"), Bytes: len(payload)},
	}
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type idleConn struct {
	closed chan struct{}
	once   sync.Once
}

func (c *idleConn) ReadFromUDPAddrPort([]byte) (int, netip.AddrPort, error) {
	<-c.closed
	return 0, netip.AddrPort{}, net.ErrClosed
}

func (c *idleConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type fixture struct {
	srv    *Server
	sess   *session.Session
	sender *fakeSender
	mock   *studio.MockServer
}

func newFixture(t *testing.T, mutate func(*session.Config, *Config)) *fixture {
	t.Helper()
	mock := studio.NewMockServer("1234")
	t.Cleanup(mock.Close)

	sender := &fakeSender{}
	scfg := session.Config{
		Sender:      sender,
		API:         studio.New(mock.Config()),
		Local:       77,
		SendEnabled: true,
		FrameRate:   30,
		OpenReceiver: func(context.Context) (listener.PacketConn, error) {
			return &idleConn{closed: make(chan struct{})}, nil
		},
		Logger: zerolog.Nop(),
	}
	acfg := Config{Logger: zerolog.Nop()}
	if mutate != nil {
		mutate(&scfg, &acfg)
	}
	sess := session.New(scfg)
	t.Cleanup(func() { _ = sess.Close() })
	acfg.Session = sess
	return &fixture{srv: New(acfg), sess: sess, sender: sender, mock: mock}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/v1/recording/start", `{"name":"Take01"}`)

	w := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mocapsync_dispatch_duration_seconds")
	assert.Contains(t, w.Body.String(), "mocapsync_http_request_duration_seconds")
}

func TestStartRecording(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/recording/start", `{"name":"Take01","timecode":"00:00:10:00","frame_rate":24}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[dispatchResponse](t, w)
	assert.Equal(t, "start", res.Operation)
	assert.Equal(t, "ok", res.Status)
	assert.NotEmpty(t, res.CorrelationID)
	assert.Len(t, res.Broadcast, 2)
	require.NotNil(t, res.HTTP)
	assert.Equal(t, "recording/start", res.HTTP.Endpoint)
	require.NotNil(t, res.HTTP.Response)
	assert.Equal(t, "OK", res.HTTP.Response.ResponseCode)

	req, ok := f.mock.Next(time.Second)
	require.True(t, ok)
	assert.Equal(t, "recording/start", req.Endpoint)
	assert.JSONEq(t, `{"filename":"Take01","time":"00:00:10:00","frame_rate":24.0,"back_to_live":false}`, string(req.Body))
	assert.Equal(t, "Take01", f.sess.LastRecordingName())
}

func TestStartRecordingRequiresName(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/recording/start", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name_required", decode[apiError](t, w).Error)
	assert.Zero(t, f.sender.count())
	assert.Empty(t, f.mock.Requests())
}

func TestStartRecordingRejectsBadBodies(t *testing.T) {
	f := newFixture(t, nil)

	for _, body := range []string{`{"name":`, `{"name":"a","bogus":1}`, `{"name":"a","frame_rate":-1}`} {
		w := f.do(t, http.MethodPost, "/api/v1/recording/start", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Zero(t, f.sender.count())
}

func TestStopUsesLastRecordingName(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/v1/recording/start", `{"name":"Take07"}`)
	_, _ = f.mock.Next(time.Second)

	w := f.do(t, http.MethodPost, "/api/v1/recording/stop", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "stop", decode[dispatchResponse](t, w).Operation)

	req, ok := f.mock.Next(time.Second)
	require.True(t, ok)
	assert.Equal(t, "recording/stop", req.Endpoint)
	assert.Contains(t, string(req.Body), `"filename":"Take07"`)
}

func TestAllLegsFailedIsBadGateway(t *testing.T) {
	f := newFixture(t, func(s *session.Config, _ *Config) { s.SendEnabled = false })
	f.mock.SetResponse(studio.EndpointRecordingStop, http.StatusInternalServerError, `{}`)

	w := f.do(t, http.MethodPost, "/api/v1/recording/stop", `{"name":"Take01"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	res := decode[dispatchResponse](t, w)
	assert.Equal(t, "failed", res.Status)
	assert.Empty(t, res.Broadcast)
	require.NotNil(t, res.HTTP)
	assert.NotEmpty(t, res.HTTP.Error)
}

func TestCalibrate(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/calibrate", `{"device_id":"suit-1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "calibrate", decode[dispatchResponse](t, w).Operation)
	assert.Zero(t, f.sender.count())

	req, ok := f.mock.Next(time.Second)
	require.True(t, ok)
	assert.Equal(t, studio.EndpointCalibrate, req.Endpoint)
	assert.Contains(t, string(req.Body), `"device_id":"suit-1"`)
	assert.Contains(t, string(req.Body), `"countdown_delay":1`)

	w = f.do(t, http.MethodPost, "/api/v1/calibrate", `{"countdown_delay":-2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggles(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPatch, "/api/v1/toggles", `{"send":false,"verbose":false,"receive":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[session.State](t, w)
	want := session.State{
		ProcessID:       77,
		SendEnabled:     false,
		ReceiveEnabled:  true,
		Verbose:         false,
		FrameRate:       30,
		ListenerRunning: true,
	}
	assert.Empty(t, cmp.Diff(want, got))

	f.do(t, http.MethodPost, "/api/v1/recording/start", `{"name":"Take01"}`)
	assert.Zero(t, f.sender.count())

	w = f.do(t, http.MethodPatch, "/api/v1/toggles", `{"receive":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[session.State](t, w).ListenerRunning)
	require.NoError(t, f.sess.Close())
}

func TestToggleReceiveFailure(t *testing.T) {
	f := newFixture(t, func(s *session.Config, _ *Config) {
		s.OpenReceiver = func(context.Context) (listener.PacketConn, error) {
			return nil, errors.New("address already in use")
		}
	})

	w := f.do(t, http.MethodPatch, "/api/v1/toggles", `{"receive":true}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decode[apiError](t, w).Detail, "address already in use")
	assert.False(t, f.sess.ReceiveEnabled())
}

func TestStatus(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/v1/recording/start", `{"name":"Take03"}`)

	w := f.do(t, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[session.State](t, w)
	assert.Equal(t, "Take03", st.LastRecordingName)
	assert.True(t, st.SendEnabled)
}

func TestCommandRateLimit(t *testing.T) {
	f := newFixture(t, func(_ *session.Config, a *Config) { a.RateLimitPerMinute = 2 })

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/recording/stop", `{"name":"x"}`).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, f.do(t, http.MethodPost, "/api/v1/recording/stop", `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/status", "").Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
