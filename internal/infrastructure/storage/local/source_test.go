package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/domain/decision"
	"github.com/turtacn/LexCite/pkg/errors"
)

func writeLines(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

const (
	decisionDE = `{"decision_id":"d1","language":"de","facts":"Gemäss Art. 7a OR","considerations":"vgl. BGE 121 III 38","sections":{"rubrum":"Kopf"},"citations":{"laws":[{"text":"Art. 7a OR","url":"https://example.org/or"}],"rulings":[{"text":"BGE 121 III 38"}]}}`
	decisionFR = `{"decision_id":"d2","language":"fr","facts":"art. 1 CO","citations":{"laws":[{"text":"art. 1 CO"}]}}`
	decisionIT = `{"decision_id":"d3","language":"it","considerations":"","citations":{"rulings":[{"text":"DTF 120 II 5"}],"other":[{"text":"x"}]}}`
)

func TestDecisionFile_Decisions(t *testing.T) {
	path := writeLines(t, "decisions.jsonl", decisionDE, "", decisionFR, decisionIT)

	docs, err := NewDecisionFile(path, decision.Filter{}, nil).Decisions(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)

	d1 := docs[0]
	assert.Equal(t, "d1", d1.ID)
	assert.Equal(t, "de", d1.Language)
	assert.Equal(t, "Gemäss Art. 7a OR", d1.Fields[decision.FieldFacts])
	assert.Equal(t, "vgl. BGE 121 III 38", d1.Fields[decision.FieldConsiderations])
	assert.Equal(t, "Kopf", d1.Fields["rubrum"])
	assert.Equal(t, []decision.Mention{{Text: "Art. 7a OR", URL: "https://example.org/or"}}, d1.MentionsOf(citation.TypeLaw))
	assert.Equal(t, []decision.Mention{{Text: "BGE 121 III 38"}}, d1.MentionsOf(citation.TypeRuling))

	d2 := docs[1]
	_, hasConsiderations := d2.Field(decision.FieldConsiderations)
	assert.False(t, hasConsiderations, "absent sections are not invented")
	assert.Empty(t, d2.MentionsOf(citation.TypeRuling))

	d3 := docs[2]
	text, ok := d3.Field(decision.FieldConsiderations)
	assert.True(t, ok)
	assert.Empty(t, text)
	assert.Len(t, d3.Mentions, 1, "unknown citation lists are skipped")
}

func TestDecisionFile_FilterAndLimit(t *testing.T) {
	path := writeLines(t, "decisions.jsonl", decisionDE, decisionFR, decisionIT)
	ctx := context.Background()

	docs, err := NewDecisionFile(path, decision.Filter{Languages: []string{"fr", "it"}}, nil).Decisions(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d2", docs[0].ID)
	assert.Equal(t, "d3", docs[1].ID)

	docs, err = NewDecisionFile(path, decision.Filter{Languages: []string{"fr", "it"}, Limit: 1}, nil).Decisions(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d2", docs[0].ID)
}

func TestDecisionFile_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		_, err := NewDecisionFile(filepath.Join(t.TempDir(), "nope.jsonl"), decision.Filter{}, nil).Decisions(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeStorageError))
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeLines(t, "decisions.jsonl", decisionDE, "{broken")
		_, err := NewDecisionFile(path, decision.Filter{}, nil).Decisions(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
		assert.Contains(t, err.Error(), "decisions.jsonl:2")
	})

	t.Run("missing id", func(t *testing.T) {
		path := writeLines(t, "decisions.jsonl", `{"language":"de"}`)
		_, err := NewDecisionFile(path, decision.Filter{}, nil).Decisions(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, decision.ErrInvalidDecision)
	})
}

func TestAbbreviationFile_Rows(t *testing.T) {
	path := writeLines(t, "lexfind.jsonl",
		`{"canton":"ch","language":"de","abbreviation":"OR","sr_number":"220"}`,
		`{"canton":"zh","language":"de","abbreviation":"StG","sr_number":"631.1"}`,
	)

	rows, err := NewAbbreviationFile(path).AbbreviationRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, citation.AbbreviationRow{SRNumber: "220", Abbreviation: "OR", Language: "de", Canton: "ch"}, rows[0])

	table := citation.NewAbbreviationTable(citation.SelectRows(rows, []string{"ch"}))
	assert.Equal(t, 1, table.Len())
}

func TestRulingFile_Rulings(t *testing.T) {
	path := writeLines(t, "rulings.jsonl",
		`{"citation":"BGE 121 III 38"}`,
		`{"volume":99,"part":"Ia","page":5}`,
	)

	keys, err := NewRulingFile(path).Rulings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []citation.Key{
		citation.RulingKey(121, "III", 38),
		citation.RulingKey(99, "Ia", 5),
	}, keys)

	bad := writeLines(t, "rulings.jsonl", `{"citation":"SR 220 Art. 1"}`)
	_, err = NewRulingFile(bad).Rulings(context.Background())
	assert.ErrorIs(t, err, citation.ErrInvalidKey)
}
