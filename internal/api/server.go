// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the local control surface: the same recording commands
// and toggles as the console, over JSON HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/mocapsync/internal/api/middleware"
	"github.com/ManuGH/mocapsync/internal/dispatch"
	xglog "github.com/ManuGH/mocapsync/internal/log"
	"github.com/ManuGH/mocapsync/internal/session"
)

const defaultShutdownTimeout = 5 * time.Second

// Session is the subset of *session.Session the control API drives.
type Session interface {
	StartRecording(ctx context.Context, name, timecode string, frameRate float64) (dispatch.Result, error)
	StopRecording(ctx context.Context, name, timecode string) dispatch.Result
	Calibrate(ctx context.Context, deviceID string, countdown int) dispatch.Result
	SetSendEnabled(on bool)
	SetVerbose(on bool)
	SetReceiveEnabled(ctx context.Context, on bool) error
	Snapshot() session.State
}

var _ Session = (*session.Session)(nil)

// Config wires a Server.
type Config struct {
	Session Session
	Logger  zerolog.Logger
	// RateLimitPerMinute bounds requests per client IP; zero disables it.
	RateLimitPerMinute int
	// TracingService names server spans; empty disables HTTP tracing.
	TracingService  string
	ShutdownTimeout time.Duration
}

// Server is the control HTTP surface.
type Server struct {
	cfg     Config
	logger  zerolog.Logger
	handler http.Handler
}

// New builds the router for cfg.
func New(cfg Config) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		Logger:         s.logger,
		EnableMetrics:  true,
		TracingService: s.cfg.TracingService,
		EnableLogging:  true,
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Group(func(r chi.Router) {
			r.Use(middleware.CommandRateLimit(s.cfg.RateLimitPerMinute))
			r.Post("/recording/start", s.handleStart)
			r.Post("/recording/stop", s.handleStop)
			r.Post("/calibrate", s.handleCalibrate)
			r.Patch("/toggles", s.handleToggles)
		})
	})
	return r
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is cancelled, then shuts down gracefully.
// It returns nil after a shutdown triggered by ctx.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.logger.Info().
		Str(xglog.FieldEvent, "api.started").
		Str("addr", ln.Addr().String()).
		Msg("control API listening")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Str(xglog.FieldEvent, "api.shutdown_failed").Msg("control API shutdown incomplete")
		_ = srv.Close()
	}
	<-errCh
	s.logger.Info().Str(xglog.FieldEvent, "api.stopped").Msg("control API stopped")
	return nil
}
