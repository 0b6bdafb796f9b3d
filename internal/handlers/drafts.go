package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"inboxpilot/internal/contextutil"
	"inboxpilot/internal/drafts"
	"inboxpilot/internal/index"
)

// DraftsHandler handles draft generation and management.
type DraftsHandler struct {
	drafts *drafts.Manager
	idx    *index.Index
}

// NewDraftsHandler creates a new DraftsHandler.
func NewDraftsHandler(m *drafts.Manager, idx *index.Index) *DraftsHandler {
	return &DraftsHandler{drafts: m, idx: idx}
}

// ReplyRequest represents the payload for generating a reply draft.
type ReplyRequest struct {
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

// NewDraftRequest represents the payload for generating a new email draft.
type NewDraftRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Context   string `json:"context"`
	Tone      string `json:"tone,omitempty"`
}

// Reply handles POST /api/emails/{id}/reply.
func (h *DraftsHandler) Reply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id := chi.URLParam(r, "id")
	entry, ok := h.idx.Entry(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Email not found")
		return
	}

	var req ReplyRequest
	if r.Body != nil {
		// Body is optional; a bare POST generates a default reply.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	draft, err := h.drafts.GenerateReply(ctx, entry.Email, req.CustomInstructions)
	if err != nil {
		logger.ErrorContext(ctx, "reply draft generation failed", "email_id", id, "error", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "draft": draft})
}

// Create handles POST /api/drafts.
func (h *DraftsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req NewDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Recipient == "" {
		writeError(w, http.StatusBadRequest, "Recipient is required")
		return
	}

	draft, err := h.drafts.GenerateNew(ctx, req.Recipient, req.Subject, req.Context, req.Tone)
	if err != nil {
		logger.ErrorContext(ctx, "draft generation failed", "recipient", req.Recipient, "error", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "draft": draft})
}

// List handles GET /api/drafts.
func (h *DraftsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	all, err := h.drafts.List(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "drafts": all})
}

// Delete handles DELETE /api/drafts/{id}.
func (h *DraftsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.drafts.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Export handles GET /api/drafts/{id}/export: plain-text download.
func (h *DraftsHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := chi.URLParam(r, "id")
	text, err := h.drafts.ExportText(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=draft_"+id+".txt")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}
