package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/yuin/goldmark"

	"inboxpilot/internal/agent"
	"inboxpilot/internal/contextutil"
	"inboxpilot/internal/inbox"
	"inboxpilot/internal/index"
)

// ChatHandler handles HTTP requests for conversational inbox queries.
type ChatHandler struct {
	agent    *agent.Agent
	idx      *index.Index
	markdown goldmark.Markdown
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(a *agent.Agent, idx *index.Index) *ChatHandler {
	return &ChatHandler{
		agent:    a,
		idx:      idx,
		markdown: goldmark.New(),
	}
}

// ChatRequest represents the HTTP request payload for chat queries.
type ChatRequest struct {
	// Query is the user's free-text question.
	Query string `json:"query"`
	// FocusedEmailID optionally names the currently selected email.
	FocusedEmailID string `json:"focused_email_id,omitempty"`
}

// ChatResponse represents the HTTP response payload for chat queries.
type ChatResponse struct {
	Success bool           `json:"success"`
	Answer  string         `json:"answer"`
	// AnswerHTML is the answer rendered from markdown for browser clients.
	AnswerHTML       string   `json:"answer_html"`
	EmailReferences  []string `json:"email_references"`
	SuggestedActions []string `json:"suggested_actions"`
	RequiresDraft    bool     `json:"requires_draft"`
	Fallback         bool     `json:"fallback,omitempty"`
}

// ServeHTTP handles POST /api/chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "No query provided")
		return
	}

	var focused *inbox.Email
	if req.FocusedEmailID != "" {
		entry, ok := h.idx.Entry(req.FocusedEmailID)
		if !ok {
			writeError(w, http.StatusNotFound, "Focused email not found")
			return
		}
		email := entry.Email
		focused = &email
	}

	response, err := h.agent.Answer(ctx, req.Query, focused)
	if err != nil {
		logger.ErrorContext(ctx, "chat query failed", "error", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Success:          true,
		Answer:           response.Answer,
		AnswerHTML:       h.renderMarkdown(response.Answer),
		EmailReferences:  response.EmailReferences,
		SuggestedActions: response.SuggestedActions,
		RequiresDraft:    response.RequiresDraft,
		Fallback:         response.Fallback,
	})
}

// renderMarkdown converts model output markdown to HTML. Rendering failures
// fall back to the raw text.
func (h *ChatHandler) renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(text), &buf); err != nil {
		return text
	}
	return buf.String()
}
