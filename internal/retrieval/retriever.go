package retrieval

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"inboxpilot/internal/inbox"
	"inboxpilot/internal/index"
)

const (
	// DefaultTopK is the number of results returned when the caller does not
	// specify a limit.
	DefaultTopK = 10
	// keywordBoost is the multiplier applied when a document contains the
	// exact query phrase or a majority of the query terms.
	keywordBoost = 1.5
)

// queryWordPattern extracts words for keyword-overlap checks. Unlike vector
// tokenization it keeps short words, matching substring semantics.
var queryWordPattern = regexp.MustCompile(`\w+`)

// Filters restricts retrieval results. Nil pointer fields mean no constraint.
type Filters struct {
	// Sender matches case-insensitively as a substring of the sender address.
	Sender string
	// Starred matches the starred flag exactly.
	Starred *bool
	// Unread matches unread status: Unread=true selects emails with Read=false.
	Unread *bool
	// Important matches the important flag exactly.
	Important *bool
	// Folder matches the folder name exactly.
	Folder string
}

// Scored is one retrieval result: an email with its relevance score.
type Scored struct {
	Email   inbox.Email `json:"email"`
	Score   float64     `json:"score"`
	EmailID string      `json:"email_id"`
}

// Retriever ranks indexed emails against free-text queries.
type Retriever struct {
	index  *index.Index
	logger *slog.Logger
}

// New creates a Retriever over an index.
func New(idx *index.Index) *Retriever {
	return &Retriever{
		index:  idx,
		logger: slog.Default(),
	}
}

// Retrieve returns the topK best-matching emails for query, highest score
// first. An unbuilt index yields an empty result, never an error. An empty
// query scores everything 0.0 and falls back to insertion order; callers
// should not read meaning into that ordering.
func (r *Retriever) Retrieve(query string, topK int, filters *Filters) []Scored {
	if !r.index.Ready() {
		return []Scored{}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	loweredQuery := strings.ToLower(query)
	queryVec := index.Tokenize(query)

	scored := make([]Scored, 0, r.index.Len())
	r.index.Walk(func(id string, entry index.Entry) {
		if filters != nil && !matchesFilters(entry.Email, filters) {
			return
		}

		score := cosineSimilarity(queryVec, entry.Vector)
		if hasKeywordOverlap(loweredQuery, entry.Text) {
			score *= keywordBoost
		}

		scored = append(scored, Scored{
			Email:   entry.Email,
			Score:   score,
			EmailID: id,
		})
	})

	// Stable sort keeps insertion order for tied scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}

	r.logger.Debug("retrieval completed",
		"query", query,
		"results", len(scored),
		"top_k", topK,
	)

	return scored
}

// SearchBySender retrieves emails from a specific sender.
func (r *Retriever) SearchBySender(sender string, topK int) []Scored {
	return r.Retrieve("from "+sender, topK, &Filters{Sender: sender})
}

// SearchByKeywords retrieves emails matching a set of keywords.
func (r *Retriever) SearchByKeywords(keywords []string, topK int) []Scored {
	return r.Retrieve(strings.Join(keywords, " "), topK, nil)
}

// UnreadEmails returns all emails with Read=false, in collection order.
// Works directly on the raw collection and needs no scoring.
func (r *Retriever) UnreadEmails() []inbox.Email {
	return filterEmails(r.index.Emails(), func(e inbox.Email) bool { return !e.Read })
}

// StarredEmails returns all starred emails, in collection order.
func (r *Retriever) StarredEmails() []inbox.Email {
	return filterEmails(r.index.Emails(), func(e inbox.Email) bool { return e.Starred })
}

// ImportantEmails returns all emails flagged important, in collection order.
func (r *Retriever) ImportantEmails() []inbox.Email {
	return filterEmails(r.index.Emails(), func(e inbox.Email) bool { return e.Important })
}

func filterEmails(emails []inbox.Email, keep func(inbox.Email) bool) []inbox.Email {
	result := make([]inbox.Email, 0, len(emails))
	for _, e := range emails {
		if keep(e) {
			result = append(result, e)
		}
	}
	return result
}

// cosineSimilarity computes normalized dot-product similarity between two
// sparse term-frequency vectors. Empty vectors score 0.0 rather than dividing
// by zero. Non-negative frequencies bound the result to [0, 1].
func cosineSimilarity(a, b index.Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	var dot float64
	for term, freq := range a {
		if other, ok := b[term]; ok {
			dot += float64(freq) * float64(other)
		}
	}

	var magA, magB float64
	for _, freq := range a {
		magA += float64(freq) * float64(freq)
	}
	for _, freq := range b {
		magB += float64(freq) * float64(freq)
	}

	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)
	if magA == 0 || magB == 0 {
		return 0.0
	}

	return dot / (magA * magB)
}

// hasKeywordOverlap reports whether text contains the exact query phrase or
// at least half (rounded up, minimum one) of the distinct query words.
func hasKeywordOverlap(loweredQuery, text string) bool {
	words := queryWordPattern.FindAllString(loweredQuery, -1)
	if len(words) == 0 {
		return false
	}

	if strings.Contains(text, loweredQuery) {
		return true
	}

	distinct := make(map[string]struct{}, len(words))
	for _, w := range words {
		distinct[w] = struct{}{}
	}

	matches := 0
	for w := range distinct {
		if strings.Contains(text, w) {
			matches++
		}
	}

	threshold := (len(distinct) + 1) / 2
	if threshold < 1 {
		threshold = 1
	}
	return matches >= threshold
}

// matchesFilters reports whether an email passes every supplied filter.
// The unread filter selects on the inverse of the Read flag: Unread=true
// matches emails that have not been read.
func matchesFilters(email inbox.Email, f *Filters) bool {
	if f.Sender != "" {
		if !strings.Contains(strings.ToLower(email.Sender), strings.ToLower(f.Sender)) {
			return false
		}
	}
	if f.Starred != nil && email.Starred != *f.Starred {
		return false
	}
	if f.Unread != nil && email.Read == *f.Unread {
		return false
	}
	if f.Important != nil && email.Important != *f.Important {
		return false
	}
	if f.Folder != "" && email.FolderOrDefault() != f.Folder {
		return false
	}
	return true
}
