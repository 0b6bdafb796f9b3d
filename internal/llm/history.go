package llm

// defaultHistorySize bounds the in-memory call history. A ring buffer keeps
// observability without letting a long-lived process grow without limit.
const defaultHistorySize = 100

// history is a fixed-capacity ring buffer of call results.
type history struct {
	max     int
	entries []Result
	start   int
}

func newHistory(max int) *history {
	if max < 1 {
		max = 1
	}
	return &history{
		max:     max,
		entries: make([]Result, 0, max),
	}
}

// append records a result, evicting the oldest entry once full.
func (h *history) append(r Result) {
	if len(h.entries) < h.max {
		h.entries = append(h.entries, r)
		return
	}
	h.entries[h.start] = r
	h.start = (h.start + 1) % h.max
}

// all returns the recorded results, oldest first.
func (h *history) all() []Result {
	out := make([]Result, 0, len(h.entries))
	for i := 0; i < len(h.entries); i++ {
		out = append(out, h.entries[(h.start+i)%len(h.entries)])
	}
	return out
}

// History returns a copy of the call history, oldest call first.
func (c *Client) History() []Result {
	return c.history.all()
}

// ClearHistory discards all recorded calls.
func (c *Client) ClearHistory() {
	c.history = newHistory(c.history.max)
}
