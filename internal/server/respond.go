package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the uniform response wrapper. Error reasons are stable
// machine-readable strings; details never carry internal state.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, reason, details string) {
	writeJSON(w, status, envelope{Success: false, Error: reason, Details: details})
}
