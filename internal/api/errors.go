// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
)

// apiError is the body of every non-2xx response.
type apiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeBadRequest reports a request the caller must fix.
func writeBadRequest(w http.ResponseWriter, code string, err error) {
	writeJSON(w, http.StatusBadRequest, apiError{Error: code, Detail: err.Error()})
}

// writeServiceUnavailable reports a toggle the session could not apply.
func writeServiceUnavailable(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "unavailable", Detail: err.Error()})
}
