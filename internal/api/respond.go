// Package api provides helpers for JSON HTTP responses.
package api

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Success writes data as JSON with the given status.
func Success(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes a JSON error body with the given status.
func Error(w http.ResponseWriter, statusCode int, message string) {
	ErrorWithRequestID(w, statusCode, message, "")
}

// ErrorWithRequestID is Error with the request ID echoed in the body.
func ErrorWithRequestID(w http.ResponseWriter, statusCode int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message, RequestID: requestID})
}
