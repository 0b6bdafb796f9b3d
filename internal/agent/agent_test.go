package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"inboxpilot/internal/agent/mocks"
	"inboxpilot/internal/inbox"
	"inboxpilot/internal/index"
	"inboxpilot/internal/llm"
	"inboxpilot/internal/retrieval"

	"go.uber.org/mock/gomock"
)

func testEmails() []inbox.Email {
	return []inbox.Email{
		{
			ID:         "email_1",
			Sender:     "alice.johnson@techcorp.com",
			SenderName: "Alice Johnson",
			Subject:    "Project Update - Week 47",
			Body:       "The migration deliverables are due Friday.",
			Timestamp:  "2025-11-17T09:12:00",
			Read:       false,
			Starred:    true,
			Important:  true,
			Folder:     "inbox",
		},
		{
			ID:         "email_2",
			Sender:     "bob.martinez@company.com",
			SenderName: "Bob Martinez",
			Subject:    "Meeting Invitation",
			Body:       "Planning session Tuesday.",
			Timestamp:  "2025-11-17T11:45:00",
			Read:       true,
			Folder:     "inbox",
		},
	}
}

func builtAgent(t *testing.T, generator TextGenerator) *Agent {
	t.Helper()
	idx := index.New()
	idx.Build(testEmails())
	return New(idx, retrieval.New(idx), generator)
}

func TestAnswerRequiresIndex(t *testing.T) {
	idx := index.New()
	a := New(idx, retrieval.New(idx), nil)

	_, err := a.Answer(context.Background(), "anything", nil)
	if !errors.Is(err, ErrNotIndexed) {
		t.Fatalf("expected ErrNotIndexed, got %v", err)
	}
}

func TestAnswerDecodesModelResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := mocks.NewMockTextGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req llm.Request) llm.Result {
			if !req.JSONMode {
				t.Error("expected JSON mode request")
			}
			if req.Temperature != 0.7 {
				t.Errorf("expected temperature 0.7, got %f", req.Temperature)
			}
			if !strings.Contains(req.Prompt, "User Query: what is due friday") {
				t.Errorf("expected query embedded in prompt, got:\n%s", req.Prompt)
			}
			if !strings.Contains(req.Prompt, "Inbox Summary:") {
				t.Error("expected statistics context in prompt")
			}
			if !strings.Contains(req.Prompt, "email_1") {
				t.Error("expected retrieved email in prompt")
			}
			return llm.Result{
				Success: true,
				Payload: map[string]any{
					"answer":            "The migration deliverables are due Friday.",
					"email_references":  []any{"email_1"},
					"suggested_actions": []any{"Reply to Alice"},
					"requires_draft":    true,
				},
			}
		})

	a := builtAgent(t, generator)
	resp, err := a.Answer(context.Background(), "what is due friday", nil)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if resp.Answer != "The migration deliverables are due Friday." {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if len(resp.EmailReferences) != 1 || resp.EmailReferences[0] != "email_1" {
		t.Errorf("unexpected references: %v", resp.EmailReferences)
	}
	if !resp.RequiresDraft {
		t.Error("expected requires_draft carried through")
	}
	if resp.Fallback {
		t.Error("normal answer should not be flagged as fallback")
	}
}

func TestAnswerFocusedEmailContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	focused := testEmails()[0]

	generator := mocks.NewMockTextGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req llm.Request) llm.Result {
			if !strings.Contains(req.Prompt, "Currently Focused Email:") {
				t.Error("expected focused email block in prompt")
			}
			if !strings.Contains(req.Prompt, "Alice Johnson <alice.johnson@techcorp.com>") {
				t.Error("expected focused sender in prompt")
			}
			return llm.Result{Success: true, Payload: map[string]any{"answer": "ok"}}
		})

	a := builtAgent(t, generator)
	if _, err := a.Answer(context.Background(), "summarize this email for me", &focused); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
}

func TestAnswerSafetyBlockFallsBackToStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := mocks.NewMockTextGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return(llm.Result{Success: false, Err: &llm.BlockedError{Reason: "content_filter"}})

	a := builtAgent(t, generator)
	resp, err := a.Answer(context.Background(), "what tasks do I need to complete", nil)
	if err != nil {
		t.Fatalf("safety block must not surface as error, got %v", err)
	}

	if !resp.Fallback {
		t.Error("expected fallback flag set")
	}
	if !strings.Contains(resp.Answer, "You have 2 emails in your inbox") {
		t.Errorf("expected statistics answer, got %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "1 unread") || !strings.Contains(resp.Answer, "1 starred") {
		t.Errorf("expected counts in answer, got %q", resp.Answer)
	}
	if len(resp.SuggestedActions) == 0 {
		t.Error("fallback should suggest a next step")
	}
}

func TestAnswerOtherErrorsPropagate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rateErr := &llm.RateLimitError{Guidance: "wait", Err: errors.New("429")}
	generator := mocks.NewMockTextGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return(llm.Result{Success: false, Err: rateErr})

	a := builtAgent(t, generator)
	_, err := a.Answer(context.Background(), "anything at all", nil)

	var got *llm.RateLimitError
	if !errors.As(err, &got) {
		t.Fatalf("expected RateLimitError passed through, got %v", err)
	}
}

func TestAnswerMalformedPayloadDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := mocks.NewMockTextGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return(llm.Result{Success: true, Payload: map[string]any{"error": "failed to parse JSON", "raw": "gibberish"}})

	a := builtAgent(t, generator)
	resp, err := a.Answer(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if resp.Answer != "Sorry, I could not process that request." {
		t.Errorf("expected generic degraded answer, got %q", resp.Answer)
	}
}

func TestAnswerRecordsHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := mocks.NewMockTextGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return(llm.Result{Success: true, Payload: map[string]any{"answer": "done"}}).
		Times(2)

	a := builtAgent(t, generator)
	if _, err := a.Answer(context.Background(), "first question", nil); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if _, err := a.Answer(context.Background(), "second question", nil); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	turns := a.History()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Query != "first question" || turns[1].Query != "second question" {
		t.Errorf("unexpected turn order: %q, %q", turns[0].Query, turns[1].Query)
	}
	if len(turns[0].Context) > contextHistoryLimit+3 {
		t.Errorf("stored context should be truncated, got %d chars", len(turns[0].Context))
	}

	a.ClearHistory()
	if len(a.History()) != 0 {
		t.Error("expected empty history after ClearHistory")
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "task plus need word rewritten",
			query: "what tasks do I need to complete",
			want:  "what tasks are mentioned in my emails",
		},
		{
			name:  "todo plus due rewritten",
			query: "any todos due this week?",
			want:  "what tasks are mentioned in my emails",
		},
		{
			name:  "task word alone untouched",
			query: "show my tasks",
			want:  "show my tasks",
		},
		{
			name:  "unrelated query untouched",
			query: "who emailed me yesterday",
			want:  "who emailed me yesterday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rewriteQuery(tt.query); got != tt.want {
				t.Fatalf("rewriteQuery(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestIsOverviewQuery(t *testing.T) {
	if !isOverviewQuery("give me an inbox summary") {
		t.Error("expected summary query detected as overview")
	}
	if isOverviewQuery("what did alice say") {
		t.Error("specific query should not be overview")
	}
}

func TestBuildContextSections(t *testing.T) {
	stats := retrieval.InboxStats{TotalEmails: 2, Unread: 1, Starred: 1, Important: 1}
	focused := testEmails()[0]
	results := []retrieval.Scored{
		{Email: testEmails()[1], Score: 0.42, EmailID: "email_2"},
	}

	text := buildContext(stats, &focused, results)

	for _, want := range []string{
		"Inbox Summary:",
		"Total Emails: 2",
		"Currently Focused Email:",
		"Subject: Project Update - Week 47",
		"Relevant Emails (1):",
		"[score 0.42] id=email_2",
		"preview: Planning session Tuesday.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("context missing %q:\n%s", want, text)
		}
	}
}

func TestBuildContextOmitsEmptySections(t *testing.T) {
	text := buildContext(retrieval.InboxStats{}, nil, nil)

	if strings.Contains(text, "Currently Focused Email:") {
		t.Error("no focused block expected without a focused email")
	}
	if strings.Contains(text, "Relevant Emails") {
		t.Error("no results block expected without results")
	}
}

func TestStatusFlags(t *testing.T) {
	e := inbox.Email{Read: false, Starred: true, Important: true}
	if got := statusFlags(e); got != " flags=unread,starred,important" {
		t.Fatalf("unexpected flags: %q", got)
	}
	if got := statusFlags(inbox.Email{Read: true}); got != "" {
		t.Fatalf("expected no flags for plain read email, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected untouched string, got %q", got)
	}
	if got := truncate("0123456789", 4); got != "0123..." {
		t.Fatalf("expected truncated string with ellipsis, got %q", got)
	}
}
