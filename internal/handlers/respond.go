package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"inboxpilot/internal/agent"
	"inboxpilot/internal/llm"
	"inboxpilot/internal/service"
	"inboxpilot/internal/storage"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps a domain error to an HTTP status and writes it.
func writeDomainError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	var rateLimited *llm.RateLimitError
	var connectivity *llm.ConnectivityError

	switch {
	case errors.Is(err, agent.ErrNotIndexed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &rateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &connectivity):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, service.ErrExternalService):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
