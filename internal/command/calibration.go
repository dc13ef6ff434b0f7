// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package command

import "fmt"

// Pose is the reference pose the performer holds during calibration.
type Pose int

const (
	TPose Pose = iota
	StraightArmsDown
	StraightArmsForward
)

var poseNames = map[Pose]string{
	TPose:               "tpose",
	StraightArmsDown:    "straight-arms-down",
	StraightArmsForward: "straight-arms-forward",
}

func (p Pose) String() string {
	if s, ok := poseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("pose(%d)", int(p))
}

// MarshalText renders the pose with its command API name.
func (p Pose) MarshalText() ([]byte, error) {
	s, ok := poseNames[p]
	if !ok {
		return nil, fmt.Errorf("unknown pose %d", int(p))
	}
	return []byte(s), nil
}

// UnmarshalText parses a command API pose name.
func (p *Pose) UnmarshalText(text []byte) error {
	for k, v := range poseNames {
		if v == string(text) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown pose %q", string(text))
}

// NoCountdown asks the device to use its own countdown.
const NoCountdown = -1

// CalibrationCommand is sent to the command API only; it has no broadcast form.
type CalibrationCommand struct {
	DeviceID       string // empty targets all devices
	CountdownDelay int    // seconds, NoCountdown for device default
	SkipSuit       bool
	SkipGloves     bool
	UseCustomPose  bool
	Pose           Pose
}

// NewCalibration returns a calibration for deviceID with the given countdown.
func NewCalibration(deviceID string, countdown int) CalibrationCommand {
	return CalibrationCommand{
		DeviceID:       deviceID,
		CountdownDelay: countdown,
		Pose:           StraightArmsDown,
	}
}

func (c CalibrationCommand) String() string {
	return fmt.Sprintf("device=%q countdown=%d pose=%s", c.DeviceID, c.CountdownDelay, c.Pose)
}
