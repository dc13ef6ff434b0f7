// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package studio

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/mocapsync/internal/wire"
)

// Request is one call observed by MockServer.
type Request struct {
	Method   string
	Endpoint string
	Body     []byte
	Header   http.Header
}

// MockServer is a configurable command API for tests.
type MockServer struct {
	*httptest.Server
	APIKey string

	mu       sync.Mutex
	requests []Request
	status   map[string]int
	body     map[string]string
	delay    time.Duration
	notify   chan Request
}

// NewMockServer starts a mock command API for apiKey.
func NewMockServer(apiKey string) *MockServer {
	m := &MockServer{
		APIKey: apiKey,
		status: make(map[string]int),
		body:   make(map[string]string),
		notify: make(chan Request, 64),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// Config returns a client configuration pointing at the mock.
func (m *MockServer) Config() Config {
	host, port, _ := net.SplitHostPort(strings.TrimPrefix(m.URL, "http://"))
	p, _ := strconv.Atoi(port)
	return Config{Host: host, Port: p, APIKey: m.APIKey, Timeout: 2 * time.Second}
}

// SetResponse overrides status and raw body for an endpoint.
func (m *MockServer) SetResponse(endpoint string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[endpoint] = status
	m.body[endpoint] = body
}

// SetDelay delays every reply.
func (m *MockServer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Requests returns a copy of the calls observed so far.
func (m *MockServer) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Next waits up to timeout for the next request.
func (m *MockServer) Next(timeout time.Duration) (Request, bool) {
	select {
	case r := <-m.notify:
		return r, true
	case <-time.After(timeout):
		return Request{}, false
	}
}

func (m *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	prefix := "/" + DefaultVersion + "/" + m.APIKey + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, `{"description":"unknown api key","response_code":"INVALID_API_KEY","startTime":0}`, http.StatusUnauthorized)
		return
	}
	endpoint := strings.TrimPrefix(r.URL.Path, prefix)
	body, _ := io.ReadAll(r.Body)

	req := Request{Method: r.Method, Endpoint: endpoint, Body: body, Header: r.Header.Clone()}
	m.mu.Lock()
	m.requests = append(m.requests, req)
	status, hasStatus := m.status[endpoint]
	raw, hasBody := m.body[endpoint]
	delay := m.delay
	m.mu.Unlock()

	select {
	case m.notify <- req:
	default:
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if !hasStatus {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if hasBody {
		_, _ = io.WriteString(w, raw)
		return
	}
	_ = json.NewEncoder(w).Encode(wire.Response{
		Description:  "Command " + endpoint + " accepted",
		ResponseCode: "OK",
		StartTime:    time.Now().UnixMilli(),
	})
}
