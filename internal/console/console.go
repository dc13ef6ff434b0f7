// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package console is the interactive operator surface: one command per line.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ManuGH/mocapsync/internal/dispatch"
	"github.com/ManuGH/mocapsync/internal/session"
)

// ErrInputClosed is returned by Run when the input reaches EOF without a quit.
var ErrInputClosed = errors.New("console: input closed")

// Session is the subset of *session.Session the console drives.
type Session interface {
	StartRecording(ctx context.Context, name, timecode string, frameRate float64) (dispatch.Result, error)
	StopRecording(ctx context.Context, name, timecode string) dispatch.Result
	Calibrate(ctx context.Context, deviceID string, countdown int) dispatch.Result
	ToggleSend() bool
	ToggleReceive(ctx context.Context) (bool, error)
	ToggleVerbose() bool
	Snapshot() session.State
}

var _ Session = (*session.Session)(nil)

const help = `Commands:
  x [name]  start recording (prompts for a clip name when omitted)
  z         stop recording
  c         calibrate
  s         toggle sending broadcast commands
  r         toggle receiving broadcast commands
  v         toggle verbose output
  p         print status
  h         print this help
  q         quit`

// CalibrationCountdown is the countdown the console requests, in seconds.
const CalibrationCountdown = 1

// Console reads commands from in and writes feedback to out.
type Console struct {
	in   *bufio.Scanner
	out  io.Writer
	sess Session
}

// New returns a console over the given streams.
func New(in io.Reader, out io.Writer, sess Session) *Console {
	return &Console{in: bufio.NewScanner(in), out: out, sess: sess}
}

// Run processes commands until q (returns nil), end of input
// (ErrInputClosed), or ctx cancellation (returns ctx.Err()).
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for c.in.Scan() {
			select {
			case lines <- c.in.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- c.in.Err()
	}()

	c.printf("Current process ID %d\n%s\n", c.sess.Snapshot().ProcessID, help)

	var pendingStart bool
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("console: read input: %w", err)
					}
				default:
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrInputClosed
			}

			if pendingStart {
				pendingStart = false
				c.start(ctx, line)
				continue
			}

			quit, prompt := c.handle(ctx, line)
			if quit {
				c.printf("Finish\n")
				return nil
			}
			if prompt {
				pendingStart = true
				c.printf("Enter a clip name: ")
			}
		}
	}
}

// handle executes one command line. It reports whether to quit and whether
// a clip name prompt is pending.
func (c *Console) handle(ctx context.Context, line string) (quit, prompt bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, false
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "x":
		if arg == "" {
			return false, true
		}
		c.start(ctx, arg)
	case "z":
		c.report(c.sess.StopRecording(ctx, arg, ""))
	case "c":
		c.report(c.sess.Calibrate(ctx, "", CalibrationCountdown))
	case "s":
		c.printf("Send broadcast commands: %t\n", c.sess.ToggleSend())
	case "r":
		on, err := c.sess.ToggleReceive(ctx)
		if err != nil {
			c.printf("Receive toggle failed: %v\n", err)
		}
		c.printf("Receive broadcast commands: %t\n", on)
	case "v":
		c.printf("Verbose mode: %t\n", c.sess.ToggleVerbose())
	case "p":
		c.status()
	case "h", "?":
		c.printf("%s\n", help)
	case "q":
		return true, false
	default:
		c.printf("Unknown command %q (h for help)\n", cmd)
	}
	return false, false
}

// start ignores empty names, like cancelling the prompt.
func (c *Console) start(ctx context.Context, name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	res, err := c.sess.StartRecording(ctx, name, "", 0)
	if err != nil {
		c.printf("Start rejected: %v\n", err)
		return
	}
	c.report(res)
}

func (c *Console) report(res dispatch.Result) {
	for _, b := range res.Broadcast {
		switch {
		case b.Err == nil:
		case b.Dest.IsValid():
			c.printf("Broadcast to %s failed: %v\n", b.Dest, b.Err)
		default:
			c.printf("Broadcast failed: %v\n", b.Err)
		}
	}
	if !res.HTTP.Attempted {
		return
	}
	if resp := res.HTTP.Response; resp != nil {
		c.printf("Response code - %s\n", resp.ResponseCode)
		c.printf("Description - %s\n", resp.Description)
		c.printf("Response Start time - %d\n", resp.StartTime)
	} else {
		c.printf("No response message deserialized\n")
	}
	if res.HTTP.Err != nil {
		c.printf("[%s] Command API request failed: %v\n", res.TriggeredAt.Format("2006-01-02 15:04:05.000"), res.HTTP.Err)
	}
}

func (c *Console) status() {
	st := c.sess.Snapshot()
	c.printf("Process ID: %d\n", st.ProcessID)
	c.printf("Send: %t  Receive: %t  Verbose: %t\n", st.SendEnabled, st.ReceiveEnabled, st.Verbose)
	c.printf("Frame rate: %g  Last recording: %q\n", st.FrameRate, st.LastRecordingName)
	if st.ListenerError != "" {
		c.printf("Listener error: %s\n", st.ListenerError)
	}
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
