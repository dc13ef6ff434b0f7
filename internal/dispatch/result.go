// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/mocapsync/internal/broadcast"
	"github.com/ManuGH/mocapsync/internal/wire"
)

// Legs selects the transports a dispatch uses.
type Legs struct {
	Broadcast bool
	HTTP      bool
}

// Status summarises a dispatch across its legs.
type Status int

const (
	// StatusSkipped means no leg was attempted.
	StatusSkipped Status = iota
	StatusOK
	// StatusPartial means at least one leg or destination failed and another succeeded.
	StatusPartial
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// HTTPResult is the outcome of the command API leg.
type HTTPResult struct {
	Attempted bool
	Endpoint  string
	// Response is nil when the reply carried no decodable envelope.
	Response *wire.Response
	Err      error
}

// Result reports what happened on each leg. Failures are data, not errors:
// a dispatch always completes.
type Result struct {
	Operation     string
	CorrelationID string
	TriggeredAt   time.Time
	Broadcast     []broadcast.SendResult
	HTTP          HTTPResult
	Elapsed       time.Duration
}

// Status derives the aggregate outcome. Each broadcast destination and the
// HTTP leg count as one attempt.
func (r Result) Status() Status {
	attempts, failures := 0, 0
	for _, s := range r.Broadcast {
		attempts++
		if s.Err != nil {
			failures++
		}
	}
	if r.HTTP.Attempted {
		attempts++
		if r.HTTP.Err != nil {
			failures++
		}
	}
	switch {
	case attempts == 0:
		return StatusSkipped
	case failures == 0:
		return StatusOK
	case failures == attempts:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// Err joins the causes of every failed leg, or returns nil.
func (r Result) Err() error {
	var errs []error
	for _, s := range r.Broadcast {
		switch {
		case s.Err == nil:
		case s.Dest.IsValid():
			errs = append(errs, fmt.Errorf("broadcast to %s: %w", s.Dest, s.Err))
		default:
			errs = append(errs, fmt.Errorf("broadcast: %w", s.Err))
		}
	}
	if r.HTTP.Err != nil {
		errs = append(errs, fmt.Errorf("command api %s: %w", r.HTTP.Endpoint, r.HTTP.Err))
	}
	return errors.Join(errs...)
}
