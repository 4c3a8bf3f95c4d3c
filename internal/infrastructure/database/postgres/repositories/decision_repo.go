package repositories

import (
	"context"
	"encoding/json"

	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/domain/decision"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/LexCite/pkg/errors"
)

// selectDecisionsSQL returns one row per decision with its sections and
// citations aggregated as JSON. $1 filters languages (NULL = all), $2 is the
// row limit (NULL = unlimited).
const selectDecisionsSQL = `
SELECT d.decision_id::text,
       l.iso_code,
       COALESCE((
           SELECT json_object_agg(st.name, s.section_text)
           FROM section s
           JOIN section_type st ON st.section_type_id = s.section_type_id
           WHERE s.decision_id = d.decision_id
       ), '{}'::json) AS sections,
       COALESCE((
           SELECT json_agg(json_build_object('type', ct.name, 'text', c.text, 'url', c.url) ORDER BY c.citation_id)
           FROM citation c
           JOIN citation_type ct ON ct.citation_type_id = c.citation_type_id
           WHERE c.decision_id = d.decision_id
       ), '[]'::json) AS citations
FROM decision d
JOIN language l ON l.language_id = d.language_id
WHERE ($1::text[] IS NULL OR l.iso_code = ANY($1::text[]))
ORDER BY d.decision_id
LIMIT $2`

type citationRow struct {
	Type string  `json:"type"`
	Text string  `json:"text"`
	URL  *string `json:"url"`
}

// DecisionRepository implements decision.Source over the scrc schema.
type DecisionRepository struct {
	q      Querier
	filter decision.Filter
	logger logging.Logger
}

var _ decision.Source = (*DecisionRepository)(nil)

// NewDecisionRepository returns a repository reading through q.
func NewDecisionRepository(q Querier, filter decision.Filter, logger logging.Logger) *DecisionRepository {
	return &DecisionRepository{q: q, filter: filter, logger: logging.OrNop(logger)}
}

// Decisions loads every decision matching the filter, ordered by id.
func (r *DecisionRepository) Decisions(ctx context.Context) ([]*decision.Decision, error) {
	var languages []string
	if len(r.filter.Languages) > 0 {
		languages = r.filter.Languages
	}
	var limit any
	if r.filter.Limit > 0 {
		limit = r.filter.Limit
	}

	rows, err := r.q.Query(ctx, selectDecisionsSQL, languages, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to query decisions")
	}
	defer rows.Close()

	var out []*decision.Decision
	for rows.Next() {
		var (
			id, lang           string
			sections, mentions []byte
		)
		if err := rows.Scan(&id, &lang, &sections, &mentions); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan decision")
		}
		d, err := r.toDecision(id, lang, sections, mentions)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate decisions")
	}

	r.logger.Debug("decisions read", logging.Int("count", len(out)))
	return out, nil
}

func (r *DecisionRepository) toDecision(id, lang string, sections, mentions []byte) (*decision.Decision, error) {
	d := &decision.Decision{
		ID:       id,
		Language: lang,
		Fields:   map[string]string{},
		Mentions: map[citation.Type][]decision.Mention{},
	}
	if err := json.Unmarshal(sections, &d.Fields); err != nil {
		return nil, appErrors.Wrapf(err, appErrors.ErrCodeSerialization, "decision %s: sections", id)
	}

	var cits []citationRow
	if err := json.Unmarshal(mentions, &cits); err != nil {
		return nil, appErrors.Wrapf(err, appErrors.ErrCodeSerialization, "decision %s: citations", id)
	}
	for _, c := range cits {
		t, err := citation.ParseType(c.Type)
		if err != nil {
			r.logger.Debug("skipping citation of unknown type",
				logging.String("decision_id", id),
				logging.String("type", c.Type),
			)
			continue
		}
		m := decision.Mention{Text: c.Text}
		if c.URL != nil {
			m.URL = *c.URL
		}
		d.Mentions[t] = append(d.Mentions[t], m)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
