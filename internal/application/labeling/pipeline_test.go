package labeling

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/domain/decision"
)

func testCorpus() []*decision.Decision {
	d1 := newDecision("d1", "de", []string{"Art. 7a OR", "Art. 12 OR"}, []string{"BGE 121 III 38"})
	d1.Fields[decision.FieldFacts] = "Nach Art. 7a OR und Art. 12 OR."
	d2 := newDecision("d2", "de", []string{"Art. 7a Abs. 1 OR", "Art. 7a Abs. 2 OR"}, []string{"BGE 121 III 38 E. 2", "BGE 130 II 1"})
	d2.Fields[decision.FieldConsiderations] = "Vgl. BGE 130 II 1."
	noRulings := newDecision("d3", "de", []string{"Art. 1 ZGB"}, nil)
	noLaws := newDecision("d4", "fr", []string{"art. 1 LX"}, []string{"ATF 99 Ia 5"})
	return []*decision.Decision{d1, d2, noRulings, noLaws}
}

func newTestPipeline(opts Options) *Pipeline {
	return NewPipeline(testParser(), NewMasker([]string{decision.FieldFacts, decision.FieldConsiderations}, "<ref-law>", "<ref-ruling>"), opts, nil, nil)
}

func TestPipeline_Run(t *testing.T) {
	res, err := newTestPipeline(Options{Workers: 2}).Run(context.Background(), "run-1", testCorpus())
	require.NoError(t, err)

	require.Len(t, res.Queries, 2)
	q1, q2 := res.Queries[0], res.Queries[1]
	assert.Equal(t, "d1", q1.DecisionID)
	assert.Equal(t, "d2", q2.DecisionID)

	// 7a is cited by both decisions, 12 only by d1.
	assert.Greater(t, q1.Scores(citation.TypeLaw)[key220("12")], q1.Scores(citation.TypeLaw)[key220("7a")])
	assert.Equal(t, 2, q2.Counts[citation.TypeLaw][key220("7a")])
	assert.Equal(t, map[citation.Key]float64{key220("7a"): 1}, q2.Scores(citation.TypeLaw))
	assert.Len(t, q2.Scores(citation.TypeRuling), 2)

	assert.Equal(t, "Nach <ref-law> und <ref-law>.", q1.Fields[decision.FieldFacts])
	assert.Equal(t, "Vgl. <ref-ruling>.", q2.Fields[decision.FieldConsiderations])

	assert.Equal(t, []citation.Key{key220("7a"), key220("12")}, res.Vocabularies[citation.TypeLaw].Keys())
	assert.Equal(t, []citation.Key{citation.RulingKey(121, "III", 38), citation.RulingKey(130, "II", 1)},
		res.Vocabularies[citation.TypeRuling].Keys())

	diag := res.Diagnostics
	assert.Equal(t, "run-1", diag.RunID)
	assert.Equal(t, 4, diag.DocumentsIn)
	assert.Equal(t, 2, diag.DocumentsRetained)
	assert.Equal(t, 1, diag.Type(citation.TypeLaw).ExcludedDocuments)
	assert.Equal(t, 1, diag.Type(citation.TypeRuling).ExcludedDocuments)
	assert.Equal(t, MentionStats{Parsed: 5, UnknownAbbreviation: 1}, diag.Type(citation.TypeLaw).Mentions)
	assert.Equal(t, MentionStats{Parsed: 4}, diag.Type(citation.TypeRuling).Mentions)
	assert.Equal(t, map[citation.Key]int{key220("7a"): 3, key220("12"): 1}, diag.Type(citation.TypeLaw).CorpusFrequency)

	assert.Equal(t, []KeyFrequency{{Key: key220("7a"), Frequency: 3}, {Key: key220("12"), Frequency: 1}},
		diag.Frequencies(citation.TypeLaw))
}

func TestPipeline_Deterministic(t *testing.T) {
	corpus := testCorpus()
	reversed := make([]*decision.Decision, len(corpus))
	for i, d := range corpus {
		reversed[len(corpus)-1-i] = d
	}

	a, err := newTestPipeline(Options{Workers: 4}).Run(context.Background(), "a", corpus)
	require.NoError(t, err)
	b, err := newTestPipeline(Options{Workers: 1}).Run(context.Background(), "b", reversed)
	require.NoError(t, err)

	for _, typ := range citation.Types() {
		assert.Equal(t, a.Vocabularies[typ].Keys(), b.Vocabularies[typ].Keys())
	}
	assert.Equal(t, a.Queries[0].Relevance, b.Queries[1].Relevance)
}

func TestPipeline_RulingCap(t *testing.T) {
	res, err := newTestPipeline(Options{
		Workers:        2,
		VocabularyCaps: map[citation.Type]int{citation.TypeRuling: 1},
	}).Run(context.Background(), "run", testCorpus())
	require.NoError(t, err)

	assert.Equal(t, []citation.Key{citation.RulingKey(121, "III", 38)}, res.Vocabularies[citation.TypeRuling].Keys())
	assert.Equal(t, 2, res.Diagnostics.Type(citation.TypeRuling).UncappedVocabularySize)
	assert.Equal(t, 1, res.Diagnostics.Type(citation.TypeRuling).VocabularySize)
	require.Len(t, res.Queries, 2)
	assert.NotContains(t, res.Queries[1].Scores(citation.TypeRuling), citation.RulingKey(130, "II", 1))
}

func TestPipeline_AmbiguityAbortsRun(t *testing.T) {
	rows := append(testRows(), citation.AbbreviationRow{SRNumber: "999", Abbreviation: "OR", Language: "de"})
	p := NewPipeline(citation.NewParser(citation.NewAbbreviationTable(rows)), NewMasker(nil, "<l>", "<r>"), Options{Workers: 2}, nil, nil)

	_, err := p.Run(context.Background(), "run", testCorpus())
	require.Error(t, err)
	assert.ErrorIs(t, err, citation.ErrAmbiguousAbbreviation)
}

func TestPipeline_DoesNotMutateDecisions(t *testing.T) {
	corpus := testCorpus()
	_, err := newTestPipeline(Options{Workers: 2}).Run(context.Background(), "run", corpus)
	require.NoError(t, err)
	assert.Equal(t, "Nach Art. 7a OR und Art. 12 OR.", corpus[0].Fields[decision.FieldFacts])
}

func TestQuery_MarshalJSON(t *testing.T) {
	q := &Query{
		DecisionID: "d1",
		Language:   "de",
		Fields:     map[string]string{"facts": "<ref-law>"},
		Relevance: map[citation.Type]map[citation.Key]float64{
			citation.TypeLaw: {key220("7a"): 1},
		},
		Counts: map[citation.Type]map[citation.Key]int{
			citation.TypeLaw: {key220("7a"): 2},
		},
	}

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"decision_id": "d1",
		"language": "de",
		"fields": {"facts": "<ref-law>"},
		"laws": {"SR 220 Art. 7a": 1},
		"rulings": {},
		"counts": {"laws": {"SR 220 Art. 7a": 2}}
	}`, string(data))
}

func TestQuery_MarshalJSON_KeepsMaskTokensVerbatim(t *testing.T) {
	q := &Query{DecisionID: "d1", Fields: map[string]string{"facts": "<ref-law> & <ref-ruling>"}}

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"facts":"<ref-law> & <ref-ruling>"`)
	assert.NotContains(t, string(data), `\u003c`)
	assert.False(t, strings.HasSuffix(string(data), "\n"))
}

func TestQuery_MarshalJSON_SectionNamedLikeAttribute(t *testing.T) {
	q := &Query{
		DecisionID: "d1",
		Language:   "de",
		Fields:     map[string]string{"decision_id": "text", "laws": "more text"},
		Relevance: map[citation.Type]map[citation.Key]float64{
			citation.TypeLaw: {key220("1"): 1},
		},
	}

	data, err := json.Marshal(q)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "d1", body["decision_id"])
	assert.Equal(t, map[string]interface{}{"SR 220 Art. 1": 1.0}, body["laws"])
	assert.Equal(t, map[string]interface{}{"decision_id": "text", "laws": "more text"}, body["fields"])
}
