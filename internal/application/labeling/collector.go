package labeling

import (
	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/domain/decision"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
)

// MentionStats counts the parse outcomes of the mentions of one type.
type MentionStats struct {
	Parsed              int `json:"parsed"`
	Malformed           int `json:"malformed"`
	UnknownAbbreviation int `json:"unknown_abbreviation"`
}

// Total is the number of mentions seen.
func (s MentionStats) Total() int { return s.Parsed + s.Malformed + s.UnknownAbbreviation }

// Add returns the sum of s and o.
func (s MentionStats) Add(o MentionStats) MentionStats {
	return MentionStats{
		Parsed:              s.Parsed + o.Parsed,
		Malformed:           s.Malformed + o.Malformed,
		UnknownAbbreviation: s.UnknownAbbreviation + o.UnknownAbbreviation,
	}
}

// Collector canonicalizes the mentions of a decision into key counts.
type Collector struct {
	parser *citation.Parser
	logger logging.Logger
}

// NewCollector returns a Collector using parser.
func NewCollector(parser *citation.Parser, logger logging.Logger) *Collector {
	return &Collector{parser: parser, logger: logging.OrNop(logger)}
}

// Collect parses every mention of type t in doc. Malformed mentions and
// unknown abbreviations are dropped and counted; an ambiguous abbreviation
// aborts with an error wrapping citation.ErrAmbiguousAbbreviation.
//
// Mentions that differ only in optional qualifiers collapse onto the same
// key and are counted separately.
func (c *Collector) Collect(doc *decision.Decision, t citation.Type) (map[citation.Key]int, MentionStats, error) {
	counts := make(map[citation.Key]int)
	var stats MentionStats
	lang := doc.NormalizedLanguage()

	for _, m := range doc.MentionsOf(t) {
		parsed, err := c.parser.Parse(t, m.Text, lang)
		if err == nil {
			counts[parsed.Key()]++
			stats.Parsed++
			continue
		}

		switch citation.CategoryOf(err) {
		case citation.FailureMalformed:
			stats.Malformed++
		case citation.FailureUnknownAbbreviation:
			stats.UnknownAbbreviation++
		default:
			return nil, stats, err
		}
		c.logger.Debug("dropped citation mention",
			logging.String("decision_id", doc.ID),
			logging.String("type", t.String()),
			logging.String("mention", m.Text),
			logging.Err(err),
		)
	}
	return counts, stats, nil
}
