// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/mocapsync/internal/log"
)

// Recoverer turns a handler panic into a logged 500 JSON response.
func Recoverer(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				buf := make([]byte, 8192)
				n := runtime.Stack(buf, false)

				reqID := RequestIDFromContext(r.Context())
				if reqID == "" {
					reqID = w.Header().Get(HeaderRequestID)
				}
				path := r.URL.Path
				if !utf8.ValidString(path) {
					path = strings.ToValidUTF8(path, "")
				}

				logger.Error().
					Str(xglog.FieldEvent, "http.panic_recovered").
					Str(xglog.FieldMethod, r.Method).
					Str(xglog.FieldPath, path).
					Str(xglog.FieldRemoteAddr, r.RemoteAddr).
					Str(xglog.FieldRequestID, reqID).
					Interface("panic_value", rec).
					Str("stack_trace", string(buf[:n])).
					Msg("panic recovered in HTTP handler")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":      "internal_error",
					"request_id": reqID,
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
