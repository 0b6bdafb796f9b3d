package processor

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_text_generator.go -package=mocks inboxpilot/internal/processor TextGenerator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"inboxpilot/internal/inbox"
	"inboxpilot/internal/llm"
	"inboxpilot/internal/prompts"
)

// TextGenerator is the processor's view of the LLM gateway.
type TextGenerator interface {
	Generate(ctx context.Context, req llm.Request) llm.Result
}

// Category is the categorization result for one email.
type Category struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ActionItem is a single extracted task.
type ActionItem struct {
	Task     string `json:"task"`
	Deadline string `json:"deadline"`
	Priority string `json:"priority"`
	// EmailID and EmailSubject identify the source email when items are
	// aggregated across the inbox.
	EmailID      string `json:"email_id,omitempty"`
	EmailSubject string `json:"email_subject,omitempty"`
}

// Summary is the summarization result for one email.
type Summary struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// Processed aggregates all pipeline results for one email. Failed steps are
// recorded in Errors; a partial result is still stored.
type Processed struct {
	Email       inbox.Email  `json:"email"`
	ProcessedAt time.Time    `json:"processed_at"`
	Category    *Category    `json:"category"`
	ActionItems []ActionItem `json:"action_items"`
	Summary     *Summary     `json:"summary"`
	Errors      []string     `json:"processing_errors,omitempty"`
}

// Processor runs emails through the categorization, action-extraction, and
// summarization pipeline and keeps the results in memory.
type Processor struct {
	generator TextGenerator
	prompts   *prompts.Manager
	processed map[string]*Processed
	order     []string
	logger    *slog.Logger
}

// New creates a Processor.
func New(generator TextGenerator, pm *prompts.Manager) *Processor {
	return &Processor{
		generator: generator,
		prompts:   pm,
		processed: make(map[string]*Processed),
		logger:    slog.Default(),
	}
}

// Categorize assigns a category to an email.
func (p *Processor) Categorize(ctx context.Context, email inbox.Email) (Category, error) {
	var out Category
	err := p.generateInto(ctx, "categorization", email, 0.3, &out)
	return out, err
}

// ExtractActions pulls action items out of an email.
func (p *Processor) ExtractActions(ctx context.Context, email inbox.Email) ([]ActionItem, error) {
	var out struct {
		ActionItems []ActionItem `json:"action_items"`
	}
	err := p.generateInto(ctx, "action_extraction", email, 0.3, &out)
	return out.ActionItems, err
}

// Summarize produces a short summary of an email.
func (p *Processor) Summarize(ctx context.Context, email inbox.Email) (Summary, error) {
	var out Summary
	err := p.generateInto(ctx, "summarization", email, 0.5, &out)
	return out, err
}

// generateInto formats the named prompt, calls the gateway, and decodes the
// structured payload into out.
func (p *Processor) generateInto(ctx context.Context, template string, email inbox.Email, temperature float64, out any) error {
	prompt, err := p.prompts.Format(template, email)
	if err != nil {
		return err
	}

	result := p.generator.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: temperature,
		JSONMode:    true,
	})
	if !result.Success {
		return result.Err
	}

	data, err := json.Marshal(result.Payload)
	if err != nil {
		return fmt.Errorf("failed to re-encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unexpected payload shape: %w", err)
	}
	return nil
}

// ProcessEmail runs the full pipeline on one email. Individual step failures
// are captured in the result's Errors; the email is stored either way.
func (p *Processor) ProcessEmail(ctx context.Context, email inbox.Email) *Processed {
	logger := p.logger
	processed := &Processed{
		Email:       email,
		ProcessedAt: time.Now(),
		ActionItems: []ActionItem{},
	}

	if category, err := p.Categorize(ctx, email); err != nil {
		logger.WarnContext(ctx, "categorization failed", "email_id", email.ID, "error", err)
		processed.Errors = append(processed.Errors, fmt.Sprintf("categorization error: %v", err))
	} else {
		processed.Category = &category
	}

	if actions, err := p.ExtractActions(ctx, email); err != nil {
		logger.WarnContext(ctx, "action extraction failed", "email_id", email.ID, "error", err)
		processed.Errors = append(processed.Errors, fmt.Sprintf("action extraction error: %v", err))
	} else {
		processed.ActionItems = actions
	}

	if summary, err := p.Summarize(ctx, email); err != nil {
		logger.WarnContext(ctx, "summarization failed", "email_id", email.ID, "error", err)
		processed.Errors = append(processed.Errors, fmt.Sprintf("summarization error: %v", err))
	} else {
		processed.Summary = &summary
	}

	if _, seen := p.processed[email.ID]; !seen {
		p.order = append(p.order, email.ID)
	}
	p.processed[email.ID] = processed

	return processed
}

// ProcessInbox runs the pipeline over a collection of emails.
func (p *Processor) ProcessInbox(ctx context.Context, emails []inbox.Email) []*Processed {
	results := make([]*Processed, 0, len(emails))
	for _, email := range emails {
		results = append(results, p.ProcessEmail(ctx, email))
	}
	return results
}

// Get returns the processed result for an email ID.
func (p *Processor) Get(emailID string) (*Processed, bool) {
	processed, ok := p.processed[emailID]
	return processed, ok
}

// All returns every processed result in processing order.
func (p *Processor) All() []*Processed {
	out := make([]*Processed, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.processed[id])
	}
	return out
}

// ByCategory returns processed emails assigned to a category.
func (p *Processor) ByCategory(category string) []*Processed {
	var out []*Processed
	for _, id := range p.order {
		processed := p.processed[id]
		if processed.Category != nil && processed.Category.Category == category {
			out = append(out, processed)
		}
	}
	return out
}

// AllActionItems aggregates action items across all processed emails,
// annotated with their source email.
func (p *Processor) AllActionItems() []ActionItem {
	var out []ActionItem
	for _, id := range p.order {
		processed := p.processed[id]
		for _, item := range processed.ActionItems {
			item.EmailID = processed.Email.ID
			item.EmailSubject = processed.Email.Subject
			out = append(out, item)
		}
	}
	return out
}
