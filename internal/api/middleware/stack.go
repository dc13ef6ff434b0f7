// SPDX-License-Identifier: MIT

package middleware

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// StackConfig configures the control API middleware stack.
type StackConfig struct {
	Logger zerolog.Logger

	// Observability
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	// RateLimitPerMinute bounds requests per client IP; zero disables it.
	RateLimitPerMinute int
}

// NewRouter constructs a chi router with the middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the middleware stack to r, outermost first.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(RequestID)
	r.Use(Recoverer(cfg.Logger))
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(AccessLog(cfg.Logger))
	}
	if cfg.RateLimitPerMinute > 0 {
		r.Use(CommandRateLimit(cfg.RateLimitPerMinute))
	}
}
