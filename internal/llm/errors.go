package llm

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned by NewClient when no API credential is
// available. The client must not be constructible without one.
var ErrMissingAPIKey = errors.New("LLM API key is not set")

// BlockedError indicates the provider refused to return content, usually a
// safety filter. Blocks are terminal and never retried.
type BlockedError struct {
	// Reason is the provider's finish reason for the block.
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("response blocked (finish_reason: %s); try asking in a different way or with less context", e.Reason)
}

// RateLimitError indicates the provider throttled the request and all
// retries were exhausted. Guidance carries remediation text suitable for
// end-user display.
type RateLimitError struct {
	Guidance string
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %s", e.Guidance)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// ConnectivityError indicates the provider was unreachable (network failure,
// timeout, or server unavailable) after all retries were exhausted.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("unable to reach LLM service after multiple attempts: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }
