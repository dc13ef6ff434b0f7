// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package studio is a client for the studio's JSON command API.
//
// The API key travels as a path segment (/v1/{key}/...). It pairs the bridge
// with the studio instance and is not treated as a secret.
package studio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/mocapsync/internal/command"
	"github.com/ManuGH/mocapsync/internal/metrics"
	"github.com/ManuGH/mocapsync/internal/platform/httpx"
	"github.com/ManuGH/mocapsync/internal/wire"
)

// Endpoints relative to the API base route.
const (
	EndpointRecordingStart = "recording/start"
	EndpointRecordingStop  = "recording/stop"
	EndpointCalibrate      = "calibrate"
)

const (
	DefaultHost    = "127.0.0.1" // "localhost" resolves ::1 first and stalls on peers bound to IPv4 only
	DefaultPort    = 14053
	DefaultAPIKey  = "1234"
	DefaultVersion = "v1"

	maxBodyBytes  = 1 << 20
	maxErrorBytes = 256
)

// Config describes how to reach the command API.
type Config struct {
	Scheme    string
	Host      string
	Port      int
	APIKey    string
	Version   string
	Timeout   time.Duration
	UserAgent string
}

// Client issues recording and calibration commands.
type Client struct {
	base      string
	userAgent string
	http      *http.Client
}

// New builds a client. Zero fields take the studio defaults.
func New(cfg Config) *Client {
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.APIKey == "" {
		cfg.APIKey = DefaultAPIKey
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "mocapsync"
	}

	base := (&url.URL{
		Scheme: cfg.Scheme,
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Version + "/" + cfg.APIKey,
	}).String()

	return &Client{
		base:      strings.TrimRight(base, "/"),
		userAgent: cfg.UserAgent,
		http:      httpx.NewClient(cfg.Timeout),
	}
}

// BaseURL returns the API base route without trailing slash.
func (c *Client) BaseURL() string {
	return c.base
}

// Recording posts cmd to recording/start or recording/stop by its kind.
func (c *Client) Recording(ctx context.Context, cmd command.RecordingCommand) (*wire.Response, error) {
	endpoint := EndpointRecordingStart
	if cmd.Kind == command.Stop {
		endpoint = EndpointRecordingStop
	}
	body, err := wire.EncodeRecording(cmd)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, endpoint, body)
}

// StartRecording posts a start command regardless of cmd.Kind.
func (c *Client) StartRecording(ctx context.Context, cmd command.RecordingCommand) (*wire.Response, error) {
	cmd.Kind = command.Start
	return c.Recording(ctx, cmd)
}

// StopRecording posts a stop command regardless of cmd.Kind.
func (c *Client) StopRecording(ctx context.Context, cmd command.RecordingCommand) (*wire.Response, error) {
	cmd.Kind = command.Stop
	return c.Recording(ctx, cmd)
}

// Calibrate posts a calibration command.
func (c *Client) Calibrate(ctx context.Context, cal command.CalibrationCommand) (*wire.Response, error) {
	body, err := wire.EncodeCalibration(cal)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, EndpointCalibrate, body)
}

// post sends body and decodes the envelope. The envelope is returned even on
// non-2xx replies since the studio describes rejections in it. A nil response
// with a nil error means the reply body carried no envelope.
func (c *Client) post(ctx context.Context, endpoint string, body []byte) (*wire.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Sentinel: ErrUnavailable, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		metrics.IncAPIRequest(endpoint, metrics.OutcomeFailure)
		return nil, &APIError{Sentinel: classifyTransport(err), Endpoint: endpoint, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	data, readErr := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))

	var resp *wire.Response
	if env, ok := wire.DecodeResponse(data); ok {
		resp = &env
	} else {
		metrics.IncAPINoResponse(endpoint)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		metrics.IncAPIRequest(endpoint, metrics.OutcomeFailure)
		return resp, &APIError{
			Sentinel: statusSentinel(res.StatusCode),
			Endpoint: endpoint,
			Status:   res.StatusCode,
			Body:     truncate(string(data), maxErrorBytes),
		}
	}
	if readErr != nil && resp == nil {
		metrics.IncAPIRequest(endpoint, metrics.OutcomeFailure)
		return nil, &APIError{Sentinel: classifyTransport(readErr), Endpoint: endpoint, Status: res.StatusCode, Err: readErr}
	}

	metrics.IncAPIRequest(endpoint, metrics.OutcomeSuccess)
	return resp, nil
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrUnavailable
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...(%d bytes)", s[:n], len(s))
}
