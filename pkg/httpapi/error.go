// Package httpapi holds the JSON response shapes shared by API handlers and middleware.
package httpapi

import (
	"encoding/json"
	"net/http"
)

// RequestIDHeader is set on every response by the request logging middleware.
const RequestIDHeader = "X-Request-Id"

// ErrorEnvelope is the coded error body written by middleware (rate limiting, panics).
type ErrorEnvelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

// WriteError writes an ErrorEnvelope. The response's request id, when already set, is
// copied into meta so callers can quote it.
func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	if id := w.Header().Get(RequestIDHeader); id != "" {
		merged := make(map[string]string, len(meta)+1)
		for k, v := range meta {
			merged[k] = v
		}
		merged["request_id"] = id
		meta = merged
	}
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteMessage writes the {"error": message} shape used by the import endpoints.
func WriteMessage(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, map[string]string{"error": message})
}
