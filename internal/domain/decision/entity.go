// Package decision models a court decision as it enters the labeling
// pipeline: an identifier, a language, raw citation mentions partitioned by
// citation type and the text sections that are subject to masking.
package decision

import (
	"strings"

	"github.com/turtacn/LexCite/internal/domain/citation"
)

// Well-known text fields.
const (
	FieldFacts          = "facts"
	FieldConsiderations = "considerations"
)

// Mention is one raw citation as extracted from a decision.
type Mention struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// Decision is a single query document. Decisions are treated as read-only by
// the pipeline; derived data lives in separate values.
type Decision struct {
	ID       string
	Language string
	// Fields holds named text sections such as facts and considerations.
	Fields map[string]string
	// Mentions holds the raw citations by type.
	Mentions map[citation.Type][]Mention
}

// MentionsOf returns the mentions of type t.
func (d *Decision) MentionsOf(t citation.Type) []Mention {
	if d == nil {
		return nil
	}
	return d.Mentions[t]
}

// Field returns the named text section.
func (d *Decision) Field(name string) (string, bool) {
	if d == nil {
		return "", false
	}
	s, ok := d.Fields[name]
	return s, ok
}

// NormalizedLanguage returns the lower-case, trimmed language code.
func (d *Decision) NormalizedLanguage() string {
	return strings.ToLower(strings.TrimSpace(d.Language))
}

// Validate checks the invariants every source must uphold.
func (d *Decision) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrInvalidDecision.WithDetail("empty decision id")
	}
	for t := range d.Mentions {
		if !t.Valid() {
			return ErrInvalidDecision.WithDetailf("decision %s: unknown mention type %q", d.ID, string(t))
		}
	}
	return nil
}
