// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session holds the bridge's runtime state and is the single entry
// point for foreground commands and toggles.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/ManuGH/mocapsync/internal/command"
	"github.com/ManuGH/mocapsync/internal/dispatch"
	"github.com/ManuGH/mocapsync/internal/listener"
	xglog "github.com/ManuGH/mocapsync/internal/log"
	"github.com/ManuGH/mocapsync/internal/loopguard"
	"github.com/ManuGH/mocapsync/internal/metrics"
	"github.com/ManuGH/mocapsync/internal/wire"
)

var (
	// ErrEmptyName rejects a start without a clip name.
	ErrEmptyName = errors.New("session: clip name is required")
	// ErrInvalidFrameRate rejects non-positive or non-finite rates.
	ErrInvalidFrameRate = errors.New("session: frame rate must be a positive number")
	// ErrClosed is returned by toggles after Close.
	ErrClosed = errors.New("session: closed")
)

// Toggle names used in logs and metrics.
const (
	ToggleSend    = "send"
	ToggleReceive = "receive"
	ToggleVerbose = "verbose"
)

// Opener binds a fresh receive socket each time receiving is enabled.
type Opener func(ctx context.Context) (listener.PacketConn, error)

// Config wires a Session.
type Config struct {
	Sender dispatch.BroadcastSender
	API    dispatch.CommandAPI
	Codec  wire.Codec
	// SenderCloser releases the send socket on Close; optional.
	SenderCloser io.Closer
	OpenReceiver Opener
	Local        command.ProcessID

	SendEnabled    bool
	ReceiveEnabled bool
	Verbose        bool
	FrameRate      float64

	RelayQueueSize int
	RelayRate      rate.Limit
	RelayBurst     int

	// OnListenerError is called when the receive loop fails; receiving is
	// already disabled when it runs.
	OnListenerError func(error)
	Logger          zerolog.Logger
}

// State is a point-in-time copy of the session.
type State struct {
	ProcessID         command.ProcessID `json:"process_id"`
	SendEnabled       bool              `json:"send_enabled"`
	ReceiveEnabled    bool              `json:"receive_enabled"`
	Verbose           bool              `json:"verbose"`
	FrameRate         float64           `json:"frame_rate"`
	LastRecordingName string            `json:"last_recording_name"`
	ListenerRunning   bool              `json:"listener_running"`
	ListenerError     string            `json:"listener_error,omitempty"`
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Session is safe for concurrent use.
type Session struct {
	cfg        Config
	dispatcher *dispatch.Dispatcher
	logger     zerolog.Logger

	send      atomic.Bool
	receive   atomic.Bool
	verbose   atomic.Bool
	frameRate atomic.Uint64

	nameMu   sync.Mutex
	lastName string

	// lifecycle guards the listener run and closed.
	lifecycle   sync.Mutex
	current     *run
	lastErr     error
	closed      bool
	closeSender sync.Once
}

// New builds a session. Receiving is not started until Start is called.
func New(cfg Config) *Session {
	s := &Session{cfg: cfg, logger: cfg.Logger}
	s.send.Store(cfg.SendEnabled)
	s.verbose.Store(cfg.Verbose)
	fr := cfg.FrameRate
	if !validFrameRate(fr) {
		fr = command.DefaultFrameRate
	}
	s.frameRate.Store(math.Float64bits(fr))

	s.dispatcher = dispatch.New(dispatch.Config{
		Sender:  cfg.Sender,
		API:     cfg.API,
		Codec:   cfg.Codec,
		Verbose: s.Verbose,
		Logger:  cfg.Logger.With().Str(xglog.FieldComponent, "dispatch").Logger(),
	})

	metrics.SetToggle(ToggleSend, cfg.SendEnabled)
	metrics.SetToggle(ToggleReceive, false)
	metrics.SetToggle(ToggleVerbose, cfg.Verbose)
	return s
}

// Start applies the configured receive toggle.
func (s *Session) Start(ctx context.Context) error {
	if !s.cfg.ReceiveEnabled {
		return nil
	}
	return s.SetReceiveEnabled(ctx, true)
}

// StartRecording records name as the last recording and dispatches a start.
// A non-positive frameRate uses the session rate.
func (s *Session) StartRecording(ctx context.Context, name, timecode string, frameRate float64) (dispatch.Result, error) {
	name = normalizeName(name)
	if name == "" {
		return dispatch.Result{}, ErrEmptyName
	}
	if frameRate <= 0 {
		frameRate = s.FrameRate()
	}

	s.nameMu.Lock()
	s.lastName = name
	s.nameMu.Unlock()

	cmd := command.NewRecording(command.Start, name, timecode, frameRate, s.cfg.Local)
	return s.dispatch(ctx, cmd), nil
}

// StopRecording dispatches a stop. An empty name stops the last recording.
func (s *Session) StopRecording(ctx context.Context, name, timecode string) dispatch.Result {
	name = normalizeName(name)
	if name == "" {
		name = s.LastRecordingName()
	}
	cmd := command.NewRecording(command.Stop, name, timecode, s.FrameRate(), s.cfg.Local)
	return s.dispatch(ctx, cmd)
}

// Calibrate sends a calibration to the command API.
func (s *Session) Calibrate(ctx context.Context, deviceID string, countdown int) dispatch.Result {
	return s.dispatcher.Calibrate(ctx, command.NewCalibration(deviceID, countdown))
}

func (s *Session) dispatch(ctx context.Context, cmd command.RecordingCommand) dispatch.Result {
	return s.dispatcher.Dispatch(ctx, cmd, dispatch.Legs{Broadcast: s.send.Load(), HTTP: true})
}

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// LastRecordingName returns the name of the most recent start.
func (s *Session) LastRecordingName() string {
	s.nameMu.Lock()
	defer s.nameMu.Unlock()
	return s.lastName
}

// SendEnabled reports whether foreground commands are broadcast.
func (s *Session) SendEnabled() bool { return s.send.Load() }

// ReceiveEnabled reports whether the listener should be running.
func (s *Session) ReceiveEnabled() bool { return s.receive.Load() }

// Verbose reports whether per-send detail is logged.
func (s *Session) Verbose() bool { return s.verbose.Load() }

// FrameRate returns the rate used when callers supply none.
func (s *Session) FrameRate() float64 {
	return math.Float64frombits(s.frameRate.Load())
}

// SetFrameRate changes the session frame rate.
func (s *Session) SetFrameRate(fr float64) error {
	if !validFrameRate(fr) {
		return fmt.Errorf("%w: %v", ErrInvalidFrameRate, fr)
	}
	s.frameRate.Store(math.Float64bits(fr))
	return nil
}

func validFrameRate(fr float64) bool {
	return fr > 0 && !math.IsInf(fr, 0) && !math.IsNaN(fr)
}

// SetSendEnabled gates the broadcast leg of foreground commands.
func (s *Session) SetSendEnabled(on bool) {
	old := s.send.Swap(on)
	s.logToggle(ToggleSend, old, on)
}

// SetVerbose toggles per-send logging.
func (s *Session) SetVerbose(on bool) {
	old := s.verbose.Swap(on)
	s.logToggle(ToggleVerbose, old, on)
}

// ToggleSend flips the send toggle and returns the new value.
func (s *Session) ToggleSend() bool {
	on := !s.send.Load()
	s.SetSendEnabled(on)
	return on
}

// ToggleVerbose flips the verbose toggle and returns the new value.
func (s *Session) ToggleVerbose() bool {
	on := !s.verbose.Load()
	s.SetVerbose(on)
	return on
}

// ToggleReceive flips the receive toggle and returns the new value.
func (s *Session) ToggleReceive(ctx context.Context) (bool, error) {
	s.lifecycle.Lock()
	on := s.current == nil
	s.lifecycle.Unlock()
	if err := s.SetReceiveEnabled(ctx, on); err != nil {
		return s.receive.Load(), err
	}
	return on, nil
}

// SetReceiveEnabled starts or stops the listener. Starting while running and
// stopping while stopped are no-ops. Stopping waits for the receive loop to
// exit.
func (s *Session) SetReceiveEnabled(ctx context.Context, on bool) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if on {
		return s.startListenerLocked(ctx)
	}
	s.stopListenerLocked()
	return nil
}

func (s *Session) startListenerLocked(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if s.current != nil {
		return nil
	}
	if s.cfg.OpenReceiver == nil {
		return errors.New("session: no receiver configured")
	}

	conn, err := s.cfg.OpenReceiver(ctx)
	if err != nil {
		s.lastErr = err
		return fmt.Errorf("session: enable receive: %w", err)
	}

	l := listener.New(listener.Config{
		Conn:      conn,
		Guard:     loopguard.New(s.cfg.Local),
		Codec:     s.cfg.Codec,
		Relay:     s.dispatcher,
		QueueSize: s.cfg.RelayQueueSize,
		RateLimit: s.cfg.RelayRate,
		Burst:     s.cfg.RelayBurst,
		FrameRate: s.FrameRate,
		Verbose:   s.Verbose,
		Logger:    s.logger.With().Str(xglog.FieldComponent, "listener").Logger(),
	})

	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel, done: make(chan struct{})}
	s.current = r
	s.lastErr = nil
	old := s.receive.Swap(true)
	s.logToggle(ToggleReceive, old, true)

	go func() {
		err := l.Run(runCtx)
		close(r.done)
		if err != nil {
			s.listenerFailed(r, err)
		}
	}()
	return nil
}

// listenerFailed turns receiving off after an unrecoverable socket error.
func (s *Session) listenerFailed(r *run, err error) {
	s.lifecycle.Lock()
	if s.current != r {
		// Already stopped on purpose.
		s.lifecycle.Unlock()
		return
	}
	s.current = nil
	s.lastErr = err
	s.receive.Store(false)
	metrics.SetToggle(ToggleReceive, false)
	s.lifecycle.Unlock()
	r.cancel()

	s.logger.Error().
		Err(err).
		Str(xglog.FieldEvent, "session.listener_failed").
		Msg("receive disabled after listener failure")
	if s.cfg.OnListenerError != nil {
		s.cfg.OnListenerError(err)
	}
}

func (s *Session) stopListenerLocked() {
	r := s.current
	if r == nil {
		return
	}
	s.current = nil
	r.cancel()
	<-r.done
	old := s.receive.Swap(false)
	s.logToggle(ToggleReceive, old, false)
}

func (s *Session) logToggle(name string, old, on bool) {
	metrics.SetToggle(name, on)
	if old == on {
		return
	}
	s.logger.Info().
		Str(xglog.FieldEvent, "session.toggle").
		Str("toggle", name).
		Bool(xglog.FieldOldState, old).
		Bool(xglog.FieldNewState, on).
		Msg("toggle changed")
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	st := State{
		ProcessID:         s.cfg.Local,
		SendEnabled:       s.send.Load(),
		ReceiveEnabled:    s.receive.Load(),
		Verbose:           s.verbose.Load(),
		FrameRate:         s.FrameRate(),
		LastRecordingName: s.LastRecordingName(),
	}
	s.lifecycle.Lock()
	st.ListenerRunning = s.current != nil
	if s.lastErr != nil {
		st.ListenerError = s.lastErr.Error()
	}
	s.lifecycle.Unlock()
	return st
}

// Close stops the listener and releases the send socket. Foreground commands
// issued after Close still reach the command API.
func (s *Session) Close() error {
	s.lifecycle.Lock()
	s.stopListenerLocked()
	s.closed = true
	s.lifecycle.Unlock()

	var err error
	s.closeSender.Do(func() {
		if s.cfg.SenderCloser != nil {
			err = s.cfg.SenderCloser.Close()
		}
	})
	return err
}
