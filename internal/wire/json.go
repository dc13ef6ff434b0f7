// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ManuGH/mocapsync/internal/command"
)

type recordingBody struct {
	Filename   string    `json:"filename"`
	Time       string    `json:"time"`
	FrameRate  frameRate `json:"frame_rate"`
	BackToLive bool      `json:"back_to_live"`
}

type calibrationBody struct {
	DeviceID       string       `json:"device_id"`
	CountdownDelay int          `json:"countdown_delay"`
	SkipSuit       bool         `json:"skip_suit"`
	SkipGloves     bool         `json:"skip_gloves"`
	UseCustomPose  bool         `json:"use_custom_pose"`
	Pose           command.Pose `json:"pose"`
}

// frameRate is a single-precision rate rendered with a fractional part
// (30 -> 30.0), matching what the command API peers emit.
type frameRate float64

func (f frameRate) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("invalid frame rate %v", v)
	}
	s := strconv.FormatFloat(v, 'f', -1, 32)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return []byte(s), nil
}

// EncodeRecording renders the body for recording/start and recording/stop.
func EncodeRecording(cmd command.RecordingCommand) ([]byte, error) {
	b, err := json.Marshal(recordingBody{
		Filename:   cmd.Name,
		Time:       cmd.Timecode,
		FrameRate:  frameRate(cmd.FrameRate),
		BackToLive: cmd.BackToLive,
	})
	if err != nil {
		return nil, fmt.Errorf("encode recording command: %w", err)
	}
	return b, nil
}

// EncodeCalibration renders the body for calibrate.
func EncodeCalibration(cmd command.CalibrationCommand) ([]byte, error) {
	b, err := json.Marshal(calibrationBody{
		DeviceID:       cmd.DeviceID,
		CountdownDelay: cmd.CountdownDelay,
		SkipSuit:       cmd.SkipSuit,
		SkipGloves:     cmd.SkipGloves,
		UseCustomPose:  cmd.UseCustomPose,
		Pose:           cmd.Pose,
	})
	if err != nil {
		return nil, fmt.Errorf("encode calibration command: %w", err)
	}
	return b, nil
}

// Response is the acknowledgement envelope returned by the command API.
type Response struct {
	Description  string `json:"description"`
	ResponseCode string `json:"response_code"`
	StartTime    int64  `json:"startTime"`
}

// DecodeResponse parses an API reply body. Empty, null or malformed bodies
// yield ok=false; the caller reports "no response" and carries on.
func DecodeResponse(body []byte) (Response, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return Response{}, false
	}

	var raw struct {
		Description  string          `json:"description"`
		ResponseCode json.RawMessage `json:"response_code"`
		StartTime    json.Number     `json:"startTime"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Response{}, false
	}

	resp := Response{Description: raw.Description}
	if code, ok := scalarString(raw.ResponseCode); ok {
		resp.ResponseCode = code
	} else {
		return Response{}, false
	}
	if raw.StartTime != "" {
		ms, err := raw.StartTime.Int64()
		if err != nil {
			f, ferr := raw.StartTime.Float64()
			if ferr != nil {
				return Response{}, false
			}
			ms = int64(f)
		}
		resp.StartTime = ms
	}
	return resp, true
}

// scalarString accepts a JSON string or number and returns its text.
func scalarString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}
