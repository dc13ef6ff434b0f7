// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package studio

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUnavailable = errors.New("studio: host unreachable or transport failure")
	ErrTimeout     = errors.New("studio: request timed out")
	ErrRejected    = errors.New("studio: command rejected (4xx)")
	ErrUpstream    = errors.New("studio: internal error (5xx)")
	ErrUnexpected  = errors.New("studio: unexpected status")
)

// APIError wraps a sentinel with the request context.
type APIError struct {
	Sentinel error
	Endpoint string
	Status   int
	Body     string
	Err      error // lower-level cause (net.Error, url.Error)
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("studio: %s: %v", e.Endpoint, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}

func statusSentinel(status int) error {
	switch {
	case status >= 400 && status < 500:
		return ErrRejected
	case status >= 500:
		return ErrUpstream
	default:
		return ErrUnexpected
	}
}
