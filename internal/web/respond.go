// Package web holds the JSON envelope shared by HTTP handlers.
package web

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every JSON response: data on success, error on
// failure, and optional metadata.
type Envelope struct {
	Data  interface{}            `json:"data,omitempty"`
	Error *ErrorBody             `json:"error,omitempty"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
}

type ErrorBody struct {
	Message string `json:"message"`
}

// Respond writes data wrapped in an Envelope.
func Respond(w http.ResponseWriter, status int, data interface{}, meta map[string]interface{}) {
	write(w, status, Envelope{Data: data, Meta: meta})
}

// RespondError writes a failure envelope with a user-facing message.
func RespondError(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Error: &ErrorBody{Message: message}})
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
