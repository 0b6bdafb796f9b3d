package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"inboxpilot/internal/agent"
	"inboxpilot/internal/llm"
	"inboxpilot/internal/service"
	"inboxpilot/internal/storage"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "not indexed",
			err:        agent.ErrNotIndexed,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "validation error",
			err:        &service.ValidationError{Field: "query", Message: "is required"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "storage not found",
			err:        storage.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "service not found",
			err:        service.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "rate limited",
			err:        &llm.RateLimitError{Guidance: "wait", Err: errors.New("429")},
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "connectivity",
			err:        &llm.ConnectivityError{Err: errors.New("down")},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "external service",
			err:        service.WrapError(service.ErrExternalService, "llm call failed"),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unknown error",
			err:        errors.New("mystery"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeDomainError(w, tt.err)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if got := w.Header().Get("Content-Type"); got != "application/json" {
				t.Errorf("expected JSON content type, got %q", got)
			}
		})
	}
}
