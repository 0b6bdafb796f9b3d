package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"inboxpilot/internal/contextutil"
	"inboxpilot/internal/index"
	"inboxpilot/internal/processor"
)

// ProcessHandler runs emails through the categorization/extraction/summary
// pipeline.
type ProcessHandler struct {
	processor *processor.Processor
	idx       *index.Index
}

// NewProcessHandler creates a new ProcessHandler.
func NewProcessHandler(p *processor.Processor, idx *index.Index) *ProcessHandler {
	return &ProcessHandler{processor: p, idx: idx}
}

// ProcessAll handles POST /api/process: processes the whole inbox.
func (h *ProcessHandler) ProcessAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	emails := h.idx.Emails()
	results := h.processor.ProcessInbox(ctx, emails)
	logger.InfoContext(ctx, "inbox processed", "emails", len(results))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"processed": results,
	})
}

// ProcessOne handles POST /api/emails/{id}/process: processes a single email.
func (h *ProcessHandler) ProcessOne(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id := chi.URLParam(r, "id")
	entry, ok := h.idx.Entry(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Email not found")
		return
	}

	processed := h.processor.ProcessEmail(ctx, entry.Email)
	logger.InfoContext(ctx, "email processed", "email_id", id, "errors", len(processed.Errors))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"processed": processed,
	})
}

// ActionItems handles GET /api/actions: aggregated action items across all
// processed emails.
func (h *ProcessHandler) ActionItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"action_items": h.processor.AllActionItems(),
	})
}
