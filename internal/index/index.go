package index

import (
	"fmt"
	"regexp"
	"strings"

	"inboxpilot/internal/inbox"
)

// wordPattern matches runs of word characters, mirroring the tokenization
// used for both documents and queries.
var wordPattern = regexp.MustCompile(`\w+`)

// minTokenLength is the minimum token length kept in a vector.
// Tokens of length 2 or less carry almost no signal ("to", "re", "a").
const minTokenLength = 3

// Vector is a sparse term-frequency vector: normalized term to occurrence count.
type Vector map[string]int

// Entry holds the derived representation for one indexed email.
type Entry struct {
	// Text is the synthesized lowercase search blob for the email.
	Text string
	// Vector is the term-frequency vector derived from Text.
	Vector Vector
	// Email is the original document the entry was derived from.
	Email inbox.Email
}

// Index maps email IDs to their lexical representations.
// It is populated in one bulk Build call and fully replaced on every
// subsequent call; query operations treat it as read-only.
type Index struct {
	emails  []inbox.Email
	entries map[string]Entry
	order   []string
	ready   bool
}

// New creates an empty, not-yet-ready index.
func New() *Index {
	return &Index{
		entries: make(map[string]Entry),
	}
}

// Build replaces the index contents with representations derived from emails.
// Duplicate IDs within the collection overwrite earlier entries. Building is
// deterministic: the same emails always produce the same representations.
func (idx *Index) Build(emails []inbox.Email) {
	entries := make(map[string]Entry, len(emails))
	order := make([]string, 0, len(emails))

	for _, email := range emails {
		text := SearchText(email)
		if _, seen := entries[email.ID]; !seen {
			order = append(order, email.ID)
		}
		entries[email.ID] = Entry{
			Text:   text,
			Vector: Tokenize(text),
			Email:  email,
		}
	}

	idx.emails = emails
	idx.entries = entries
	idx.order = order
	idx.ready = true
}

// Ready reports whether Build has been called at least once.
func (idx *Index) Ready() bool {
	return idx.ready
}

// Len returns the number of indexed emails.
func (idx *Index) Len() int {
	return len(idx.order)
}

// Emails returns the raw email collection passed to the last Build call.
func (idx *Index) Emails() []inbox.Email {
	return idx.emails
}

// Entry returns the representation for an email ID.
func (idx *Index) Entry(id string) (Entry, bool) {
	e, ok := idx.entries[id]
	return e, ok
}

// Walk visits every entry in insertion order.
func (idx *Index) Walk(fn func(id string, entry Entry)) {
	for _, id := range idx.order {
		fn(id, idx.entries[id])
	}
}

// SearchText synthesizes the lowercase searchable blob for an email.
// Field labels keep distinct fields distinguishable in substring matches and
// flag keywords make status queries ("unread", "starred") retrievable.
func SearchText(email inbox.Email) string {
	parts := []string{
		fmt.Sprintf("from: %s %s", email.SenderName, email.Sender),
		fmt.Sprintf("subject: %s", email.Subject),
		fmt.Sprintf("body: %s", email.Body),
		fmt.Sprintf("date: %s", email.Timestamp),
	}

	if email.Starred {
		parts = append(parts, "starred important")
	}
	if email.Important {
		parts = append(parts, "important priority")
	}
	if !email.Read {
		parts = append(parts, "unread new")
	}

	parts = append(parts, fmt.Sprintf("folder: %s", email.FolderOrDefault()))

	return strings.ToLower(strings.Join(parts, " "))
}

// Tokenize builds a term-frequency vector from text. Queries and documents
// must go through the same tokenization for cosine scores to be meaningful.
func Tokenize(text string) Vector {
	vec := make(Vector)
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(word) < minTokenLength {
			continue
		}
		vec[word]++
	}
	return vec
}
