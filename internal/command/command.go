// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package command defines the recording and calibration commands exchanged
// between the broadcast capture network and the studio command API.
package command

import (
	"fmt"
	"os"
)

const (
	// DefaultName is used when a decoded capture command carries no Name node.
	DefaultName = "Clip001"
	// DefaultTimecode is used when a decoded capture command carries no TimeCode node.
	DefaultTimecode = "0:0:0:0"
	// DefaultFrameRate is the session frame rate unless overridden.
	DefaultFrameRate = 30.0
)

// Kind distinguishes capture start from capture stop.
type Kind int

const (
	Start Kind = iota
	Stop
)

// Element returns the broadcast root element name for the kind.
func (k Kind) Element() string {
	if k == Stop {
		return "CaptureStop"
	}
	return "CaptureStart"
}

// Endpoint returns the command API path segment under recording/.
func (k Kind) Endpoint() string {
	if k == Stop {
		return "stop"
	}
	return "start"
}

func (k Kind) String() string {
	return k.Endpoint()
}

// ProcessID tags broadcast commands with the emitting bridge instance.
type ProcessID int

// LocalProcessID returns the identity of the running process.
func LocalProcessID() ProcessID {
	return ProcessID(os.Getpid())
}

// RecordingCommand is a single start or stop request. It is built once per
// user action or decoded packet and treated as immutable afterwards.
type RecordingCommand struct {
	Kind       Kind
	Name       string
	Timecode   string
	FrameRate  float64
	BackToLive bool
	Origin     ProcessID

	// Broadcast-only fields; the bridge emits them empty.
	Notes        string
	Description  string
	DatabasePath string
	PacketID     int
}

// IsStart reports whether the command starts a capture.
func (c RecordingCommand) IsStart() bool {
	return c.Kind == Start
}

func (c RecordingCommand) String() string {
	return fmt.Sprintf("%s name=%q timecode=%s fps=%g pid=%d", c.Kind, c.Name, c.Timecode, c.FrameRate, c.Origin)
}

// NewRecording builds a command with defaults applied to empty fields.
func NewRecording(kind Kind, name, timecode string, frameRate float64, origin ProcessID) RecordingCommand {
	if timecode == "" {
		timecode = DefaultTimecode
	}
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	return RecordingCommand{
		Kind:      kind,
		Name:      name,
		Timecode:  timecode,
		FrameRate: frameRate,
		Origin:    origin,
	}
}
