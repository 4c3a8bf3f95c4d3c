package labeling

import (
	"bytes"
	"encoding/json"

	"github.com/turtacn/LexCite/internal/domain/citation"
)

// Query is one labeled dataset record: a decision's masked text together
// with its relevance maps.
type Query struct {
	DecisionID string
	Language   string
	// Fields are the decision's text fields after masking.
	Fields map[string]string
	// Relevance holds the scores per citation type.
	Relevance map[citation.Type]map[citation.Key]float64
	// Counts holds the raw citation counts per type.
	Counts map[citation.Type]map[citation.Key]int
}

// Scores returns the relevance map of type t.
func (q *Query) Scores(t citation.Type) map[citation.Key]float64 { return q.Relevance[t] }

// queryRecord is the wire layout of a Query. Text fields live under their
// own object so a section name can never shadow a record attribute.
type queryRecord struct {
	DecisionID string                                 `json:"decision_id"`
	Language   string                                 `json:"language"`
	Fields     map[string]string                      `json:"fields"`
	Laws       map[citation.Key]float64               `json:"laws"`
	Rulings    map[citation.Key]float64               `json:"rulings"`
	Counts     map[citation.Type]map[citation.Key]int `json:"counts"`
}

// MarshalJSON renders the record with the masked text nested under "fields"
// and one relevance map per type, e.g.
//
//	{"decision_id":"…","language":"de","fields":{"facts":"…"},"laws":{"SR 220 Art. 1":1},…}
//
// Mask tokens such as <ref-law> are written verbatim, not HTML-escaped.
func (q *Query) MarshalJSON() ([]byte, error) {
	rec := queryRecord{
		DecisionID: q.DecisionID,
		Language:   q.Language,
		Fields:     q.Fields,
		Laws:       nonNilScores(q.Relevance[citation.TypeLaw]),
		Rulings:    nonNilScores(q.Relevance[citation.TypeRuling]),
		Counts:     q.Counts,
	}
	if rec.Fields == nil {
		rec.Fields = map[string]string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func nonNilScores(scores map[citation.Key]float64) map[citation.Key]float64 {
	if scores == nil {
		return map[citation.Key]float64{}
	}
	return scores
}
