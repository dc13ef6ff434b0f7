// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ManuGH/mocapsync/internal/command"
	"github.com/ManuGH/mocapsync/internal/dispatch"
	"github.com/ManuGH/mocapsync/internal/session"
	"github.com/ManuGH/mocapsync/internal/wire"
)

const maxBodyBytes = 64 << 10

type startRequest struct {
	Name      string  `json:"name"`
	Timecode  string  `json:"timecode"`
	FrameRate float64 `json:"frame_rate"`
}

type stopRequest struct {
	Name     string `json:"name"`
	Timecode string `json:"timecode"`
}

type calibrateRequest struct {
	DeviceID       string `json:"device_id"`
	CountdownDelay int    `json:"countdown_delay"`
}

type togglesRequest struct {
	Send    *bool `json:"send"`
	Receive *bool `json:"receive"`
	Verbose *bool `json:"verbose"`
}

type broadcastLeg struct {
	Dest  string `json:"dest"`
	Bytes int    `json:"bytes"`
	Error string `json:"error,omitempty"`
}

type httpLeg struct {
	Endpoint string         `json:"endpoint"`
	Response *wire.Response `json:"response,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type dispatchResponse struct {
	Operation     string         `json:"operation"`
	CorrelationID string         `json:"correlation_id"`
	Status        string         `json:"status"`
	TriggeredAt   time.Time      `json:"triggered_at"`
	ElapsedMS     float64        `json:"elapsed_ms"`
	Broadcast     []broadcastLeg `json:"broadcast,omitempty"`
	HTTP          *httpLeg       `json:"http,omitempty"`
}

func toResponse(res dispatch.Result) dispatchResponse {
	out := dispatchResponse{
		Operation:     res.Operation,
		CorrelationID: res.CorrelationID,
		Status:        res.Status().String(),
		TriggeredAt:   res.TriggeredAt,
		ElapsedMS:     float64(res.Elapsed.Microseconds()) / 1000,
	}
	for _, b := range res.Broadcast {
		leg := broadcastLeg{Bytes: b.Bytes}
		if b.Dest.IsValid() {
			leg.Dest = b.Dest.String()
		}
		if b.Err != nil {
			leg.Error = b.Err.Error()
		}
		out.Broadcast = append(out.Broadcast, leg)
	}
	if res.HTTP.Attempted {
		leg := &httpLeg{Endpoint: res.HTTP.Endpoint, Response: res.HTTP.Response}
		if res.HTTP.Err != nil {
			leg.Error = res.HTTP.Err.Error()
		}
		out.HTTP = leg
	}
	return out
}

// writeDispatch answers 502 when every attempted leg failed.
func writeDispatch(w http.ResponseWriter, res dispatch.Result) {
	code := http.StatusOK
	if res.Status() == dispatch.StatusFailed {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, toResponse(res))
}

// decodeBody strictly decodes a JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Session.Snapshot())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid_body", err)
		return
	}
	if req.FrameRate < 0 {
		writeBadRequest(w, "invalid_frame_rate", session.ErrInvalidFrameRate)
		return
	}
	res, err := s.cfg.Session.StartRecording(r.Context(), req.Name, req.Timecode, req.FrameRate)
	if errors.Is(err, session.ErrEmptyName) {
		writeBadRequest(w, "name_required", err)
		return
	}
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	writeDispatch(w, res)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid_body", err)
		return
	}
	writeDispatch(w, s.cfg.Session.StopRecording(r.Context(), req.Name, req.Timecode))
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	req := calibrateRequest{CountdownDelay: 1}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid_body", err)
		return
	}
	if req.CountdownDelay < command.NoCountdown {
		writeBadRequest(w, "invalid_countdown", fmt.Errorf("countdown_delay must be >= %d", command.NoCountdown))
		return
	}
	writeDispatch(w, s.cfg.Session.Calibrate(r.Context(), req.DeviceID, req.CountdownDelay))
}

func (s *Server) handleToggles(w http.ResponseWriter, r *http.Request) {
	var req togglesRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid_body", err)
		return
	}
	if req.Send != nil {
		s.cfg.Session.SetSendEnabled(*req.Send)
	}
	if req.Verbose != nil {
		s.cfg.Session.SetVerbose(*req.Verbose)
	}
	if req.Receive != nil {
		if err := s.cfg.Session.SetReceiveEnabled(r.Context(), *req.Receive); err != nil {
			writeServiceUnavailable(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.cfg.Session.Snapshot())
}
