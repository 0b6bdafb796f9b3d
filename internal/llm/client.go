package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultMaxRetries is the retry ceiling applied when a request does not
	// specify one.
	DefaultMaxRetries = 3
	// rateLimitBaseDelay is the first backoff step after a rate-limit signal.
	// Doubles each attempt: 10s, 20s, 40s.
	rateLimitBaseDelay = 10 * time.Second
	// connectivityBaseDelay is the first backoff step after a connectivity
	// failure. Doubles each attempt: 5s, 10s, 20s.
	connectivityBaseDelay = 5 * time.Second
	// retryAfterMargin is added on top of a provider-specified retry delay.
	retryAfterMargin = time.Second
	// jsonInstruction is appended to prompts when structured output is requested.
	jsonInstruction = "\n\nIMPORTANT: Respond with ONLY valid JSON. No markdown, no code blocks, just pure JSON."
)

// Client is the single choke point for external text-generation calls.
// It wraps an OpenAI-compatible chat completions endpoint with retry,
// backoff, and structured-output recovery so that callers always receive a
// typed Result instead of transport errors.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	client  *http.Client
	history *history
	// sleep blocks for the backoff duration, honoring context cancellation.
	// Injectable so tests can record durations instead of waiting.
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
}

// NewClient creates a new LLM client. The API key is required; a client must
// not be constructible without a resolvable credential.
func NewClient(baseURL, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		history: newHistory(defaultHistorySize),
		sleep:   sleepContext,
		logger:  slog.Default(),
	}, nil
}

// Request holds parameters for a single generation call.
type Request struct {
	// Prompt is the text sent to the model.
	Prompt string
	// Temperature controls randomness, 0.0-1.0.
	Temperature float64
	// MaxTokens limits the response length. 0 means no limit.
	MaxTokens int
	// JSONMode requests a pure-JSON response enforced by prompt instruction.
	JSONMode bool
	// MaxRetries is the attempt ceiling. 0 means DefaultMaxRetries.
	MaxRetries int
}

// Result is the typed outcome of a generation call.
type Result struct {
	// Success reports whether usable output was produced. A JSON parse
	// failure still counts as success; the payload flags it.
	Success bool `json:"success"`
	// Payload is the normalized structured response, nil on failure.
	Payload map[string]any `json:"response"`
	// Raw is the unprocessed model output, empty on failure.
	Raw string `json:"raw_response"`
	// Prompt is the originating prompt, before the JSON instruction.
	Prompt string `json:"prompt_used"`
	// Model identifies the model used.
	Model string `json:"model"`
	// Err describes the failure, nil on success.
	Err error `json:"-"`
}

// chatRequest is the wire payload for the chat completions endpoint.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// retryableError carries the classification of a failed attempt.
type retryableError struct {
	rateLimited bool
	retryAfter  time.Duration // provider-specified delay, 0 if absent
	err         error
}

func (e *retryableError) Error() string { return e.err.Error() }

// Generate executes one generation call with up to MaxRetries attempts.
// Safety blocks fail immediately; rate limits and connectivity failures are
// retried on separate exponential schedules. Every returned result, success
// or terminal failure, is recorded in the call history.
func (c *Client) Generate(ctx context.Context, req Request) Result {
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	fullPrompt := req.Prompt
	if req.JSONMode {
		fullPrompt += jsonInstruction
	}

	var lastErr *retryableError
	for attempt := 0; attempt < maxRetries; attempt++ {
		raw, attemptErr := c.attempt(ctx, fullPrompt, req)
		if attemptErr == nil {
			result := c.buildSuccess(req, raw)
			c.history.append(result)
			return result
		}

		if blocked, ok := attemptErr.(*BlockedError); ok {
			// Safety blocks are terminal; retrying the same prompt cannot help.
			result := c.fail(req, blocked)
			c.history.append(result)
			return result
		}

		retryable, ok := attemptErr.(*retryableError)
		if !ok {
			result := c.fail(req, attemptErr)
			c.history.append(result)
			return result
		}
		lastErr = retryable

		if attempt == maxRetries-1 {
			break
		}

		delay := backoffDelay(retryable, attempt)
		c.logger.Warn("LLM call failed, backing off",
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"rate_limited", retryable.rateLimited,
			"delay", delay,
			"error", retryable.err,
		)
		if err := c.sleep(ctx, delay); err != nil {
			result := c.fail(req, &ConnectivityError{Err: err})
			c.history.append(result)
			return result
		}
	}

	var terminal error
	if lastErr.rateLimited {
		terminal = &RateLimitError{
			Guidance: "the provider is throttling requests; wait for the rate limit window to reset, reduce simultaneous requests, or upgrade your plan",
			Err:      lastErr.err,
		}
	} else {
		terminal = &ConnectivityError{Err: lastErr.err}
	}
	result := c.fail(req, terminal)
	c.history.append(result)
	return result
}

// attempt performs one HTTP call and classifies the outcome.
func (c *Client) attempt(ctx context.Context, fullPrompt string, req Request) (string, error) {
	payload := chatRequest{
		Model:       c.Model,
		Messages:    []chatMessage{{Role: "user", Content: fullPrompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		raw, _ := io.ReadAll(resp.Body)
		return "", &retryableError{
			rateLimited: true,
			retryAfter:  parseRetryAfter(resp.Header.Get("Retry-After")),
			err:         fmt.Errorf("rate limited (status 429): %s", strings.TrimSpace(string(raw))),
		}
	case resp.StatusCode >= 500:
		raw, _ := io.ReadAll(resp.Body)
		return "", &retryableError{
			err: fmt.Errorf("server unavailable (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	case resp.StatusCode != http.StatusOK:
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", &retryableError{err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(chatResp.Choices) == 0 {
		return "", &BlockedError{Reason: "UNKNOWN"}
	}
	choice := chatResp.Choices[0]
	if choice.FinishReason == "content_filter" || choice.Message.Content == "" {
		reason := choice.FinishReason
		if reason == "" {
			reason = "UNKNOWN"
		}
		return "", &BlockedError{Reason: reason}
	}

	return choice.Message.Content, nil
}

// buildSuccess normalizes raw model output into a Result. In JSON mode the
// raw text gets one bounded cleanup pass (code fence stripping) before a
// strict parse; an unparseable response is still a success, with the payload
// flagging the violation and preserving the raw text for inspection.
func (c *Client) buildSuccess(req Request, raw string) Result {
	var payload map[string]any
	if req.JSONMode {
		clean := stripCodeFence(raw)
		if err := json.Unmarshal([]byte(clean), &payload); err != nil {
			payload = map[string]any{
				"error":       "failed to parse JSON",
				"raw":         raw,
				"parse_error": err.Error(),
			}
		}
	} else {
		payload = map[string]any{"text": raw}
	}

	return Result{
		Success: true,
		Payload: payload,
		Raw:     raw,
		Prompt:  req.Prompt,
		Model:   c.Model,
	}
}

func (c *Client) fail(req Request, err error) Result {
	return Result{
		Success: false,
		Prompt:  req.Prompt,
		Model:   c.Model,
		Err:     err,
	}
}

// backoffDelay picks the sleep duration before the next attempt. A provider
// retry-after wins, plus a fixed safety margin; otherwise the schedule is
// exponential with separate bases for rate limits and connectivity failures.
func backoffDelay(e *retryableError, attempt int) time.Duration {
	if e.rateLimited {
		if e.retryAfter > 0 {
			return e.retryAfter + retryAfterMargin
		}
		return rateLimitBaseDelay << attempt
	}
	return connectivityBaseDelay << attempt
}

// parseRetryAfter reads a Retry-After header value in seconds. Malformed or
// absent values yield 0, which falls back to the exponential schedule.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// stripCodeFence removes one Markdown code-fence wrapping from text.
// This is a single bounded cleanup pass; no further guessing is done.
func stripCodeFence(text string) string {
	clean := strings.TrimSpace(text)
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	} else {
		return clean
	}
	if end := strings.Index(clean, "```"); end >= 0 {
		clean = clean[:end]
	}
	return strings.TrimSpace(clean)
}

// sleepContext blocks for d or until ctx is cancelled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
