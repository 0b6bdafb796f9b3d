package agent

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_text_generator.go -package=mocks inboxpilot/internal/agent TextGenerator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"inboxpilot/internal/inbox"
	"inboxpilot/internal/index"
	"inboxpilot/internal/llm"
	"inboxpilot/internal/retrieval"
)

// ErrNotIndexed is returned by Answer when the inbox has not been indexed.
// Callers must build the index before asking questions; there is no implicit
// index-on-first-call behavior.
var ErrNotIndexed = errors.New("inbox is not indexed; call Build first")

const (
	// broadTopK is the retrieval width for overview-style queries. Narrower
	// context for broad questions keeps the payload small enough to avoid
	// tripping provider content filters.
	broadTopK = 3
	// focusedTopK is the retrieval width for specific queries.
	focusedTopK = 5
	// focusedBodyLimit caps the focused-email body included in context.
	focusedBodyLimit = 500
	// previewLimit caps each retrieved email's body preview.
	previewLimit = 80
	// contextHistoryLimit caps the context copy stored per conversation turn.
	contextHistoryLimit = 200
	// historySize bounds the conversation history ring.
	historySize = 50
)

// systemInstruction describes the agent's capabilities to the model.
const systemInstruction = "You are an Email Productivity Agent. You help users understand and manage " +
	"their inbox: you answer questions about emails, summarize threads, surface action items, and " +
	"suggest follow-ups. Answer the user's query using the email context provided. If the query is " +
	"about a specific email, reference it clearly by its ID. If it is about multiple emails, " +
	"summarize appropriately."

// overviewKeywords mark broad queries that get the narrower retrieval width.
var overviewKeywords = []string{"summary", "overview", "all my", "everything", "inbox"}

// taskWords and needWords drive the query-rewrite heuristic: queries that
// combine both are rephrased to a canonical form that provider safety
// filters tolerate better than imperative task phrasing.
var (
	taskWords = []string{"task", "tasks", "todo", "todos", "action item", "action items"}
	needWords = []string{"need", "do", "complete", "pending", "due"}
)

// TextGenerator is the agent's view of the LLM gateway.
type TextGenerator interface {
	Generate(ctx context.Context, req llm.Request) llm.Result
}

// Response is the structured answer returned to the caller.
type Response struct {
	// Answer is the natural-language answer text.
	Answer string `json:"answer"`
	// EmailReferences lists IDs of emails the answer refers to.
	EmailReferences []string `json:"email_references"`
	// SuggestedActions lists follow-up actions for the user.
	SuggestedActions []string `json:"suggested_actions"`
	// RequiresDraft indicates the query warrants generating a draft.
	RequiresDraft bool `json:"requires_draft"`
	// Fallback indicates the answer was synthesized from statistics after
	// the model declined to respond.
	Fallback bool `json:"fallback,omitempty"`
}

// Turn records one conversation exchange for later inspection.
type Turn struct {
	Query    string   `json:"query"`
	Response Response `json:"response"`
	// Context is a truncated copy of the context sent to the model.
	Context string `json:"context_provided"`
}

// Agent answers free-text questions about the inbox by combining retrieval
// results with aggregate statistics and handing the assembled context to the
// LLM gateway.
type Agent struct {
	idx       *index.Index
	retriever *retrieval.Retriever
	generator TextGenerator
	history   []Turn
	logger    *slog.Logger
}

// New creates an Agent. The index must be built by the caller before Answer
// is used.
func New(idx *index.Index, retriever *retrieval.Retriever, generator TextGenerator) *Agent {
	return &Agent{
		idx:       idx,
		retriever: retriever,
		generator: generator,
		logger:    slog.Default(),
	}
}

// Answer responds to a user query about the inbox. focused, when non-nil, is
// the currently selected email and gets a dedicated context block. Returns
// ErrNotIndexed when the index has not been built. A provider safety block is
// converted into a statistics-based fallback answer instead of an error.
func (a *Agent) Answer(ctx context.Context, query string, focused *inbox.Email) (Response, error) {
	logger := a.logger
	if !a.idx.Ready() {
		logger.WarnContext(ctx, "query before indexing", "query", query)
		return Response{}, ErrNotIndexed
	}

	rewritten := rewriteQuery(query)
	if rewritten != query {
		logger.DebugContext(ctx, "query rewritten", "original", query, "rewritten", rewritten)
	}

	topK := focusedTopK
	if isOverviewQuery(rewritten) {
		topK = broadTopK
	}

	results := a.retriever.Retrieve(rewritten, topK, nil)
	stats := a.retriever.Stats()
	contextText := buildContext(stats, focused, results)

	prompt := fmt.Sprintf(`%s

%s

User Query: %s

Respond in JSON format:
{
  "answer": "<your response to the user>",
  "email_references": ["<email_id_1>", "<email_id_2>"],
  "suggested_actions": ["<action 1>", "<action 2>"],
  "requires_draft": <true/false>
}`, systemInstruction, contextText, query)

	logger.InfoContext(ctx, "agent query started",
		"query", query,
		"retrieved", len(results),
		"top_k", topK,
		"context_length", len(contextText),
	)

	result := a.generator.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: 0.7,
		MaxTokens:   1500,
		JSONMode:    true,
	})

	var response Response
	if !result.Success {
		var blocked *llm.BlockedError
		if errors.As(result.Err, &blocked) {
			// Degrade gracefully: the user still gets a useful answer built
			// from statistics that are already in hand.
			logger.WarnContext(ctx, "response blocked, using statistics fallback", "reason", blocked.Reason)
			response = fallbackResponse(stats)
		} else {
			logger.ErrorContext(ctx, "agent query failed", "error", result.Err)
			return Response{}, result.Err
		}
	} else {
		response = decodeResponse(result.Payload)
	}

	a.recordTurn(Turn{
		Query:    query,
		Response: response,
		Context:  truncate(contextText, contextHistoryLimit),
	})

	logger.InfoContext(ctx, "agent query completed",
		"answer_length", len(response.Answer),
		"references", len(response.EmailReferences),
		"fallback", response.Fallback,
	)

	return response, nil
}

// History returns the conversation history, oldest turn first.
func (a *Agent) History() []Turn {
	out := make([]Turn, len(a.history))
	copy(out, a.history)
	return out
}

// ClearHistory discards the conversation history.
func (a *Agent) ClearHistory() {
	a.history = nil
}

func (a *Agent) recordTurn(t Turn) {
	a.history = append(a.history, t)
	if len(a.history) > historySize {
		a.history = a.history[len(a.history)-historySize:]
	}
}

// decodeResponse converts the gateway payload into a Response. Missing or
// malformed fields degrade to a generic answer rather than an error.
func decodeResponse(payload map[string]any) Response {
	data, err := json.Marshal(payload)
	if err != nil {
		return Response{Answer: "Sorry, I could not process that request."}
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil || response.Answer == "" {
		response.Answer = "Sorry, I could not process that request."
	}
	return response
}

// fallbackResponse synthesizes an answer from aggregate statistics alone.
func fallbackResponse(stats retrieval.InboxStats) Response {
	answer := fmt.Sprintf(
		"You have %d emails in your inbox: %d unread, %d starred, and %d marked important.",
		stats.TotalEmails, stats.Unread, stats.Starred, stats.Important,
	)
	if len(stats.TopSenders) > 0 {
		answer += fmt.Sprintf(" Your most frequent sender is %s (%d emails).",
			stats.TopSenders[0].Sender, stats.TopSenders[0].Count)
	}
	return Response{
		Answer:           answer,
		SuggestedActions: []string{"Try rephrasing your question, or ask about a specific email."},
		Fallback:         true,
	}
}

// rewriteQuery rephrases task-oriented queries into a canonical form.
// Kept narrow on purpose: only queries combining a task word with a
// need/action word are rewritten.
func rewriteQuery(query string) string {
	lowered := strings.ToLower(query)
	if containsAny(lowered, taskWords) && containsAny(lowered, needWords) {
		return "what tasks are mentioned in my emails"
	}
	return query
}

func isOverviewQuery(query string) bool {
	return containsAny(strings.ToLower(query), overviewKeywords)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
