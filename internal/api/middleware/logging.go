// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/mocapsync/internal/log"
)

// AccessLog logs one line per request and attaches a request-scoped logger
// to the context for handlers.
func AccessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With().Str(xglog.FieldRequestID, RequestIDFromContext(r.Context())).Logger()
			ctx := reqLogger.WithContext(r.Context())

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ev := reqLogger.Debug()
			if status >= http.StatusInternalServerError {
				ev = reqLogger.Warn()
			}
			traceID, _ := ExtractTraceContext(r)
			ev.Str(xglog.FieldEvent, "http.request").
				Str(xglog.FieldMethod, r.Method).
				Str(xglog.FieldPath, r.URL.Path).
				Int(xglog.FieldStatus, status).
				Int(xglog.FieldBytes, ww.BytesWritten()).
				Str(xglog.FieldRemoteAddr, r.RemoteAddr).
				Str("trace_id", traceID).
				Float64(xglog.FieldElapsedMS, float64(time.Since(start).Microseconds())/1000).
				Msg("http request")
		})
	}
}
