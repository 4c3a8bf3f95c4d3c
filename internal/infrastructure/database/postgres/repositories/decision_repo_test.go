package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/domain/decision"
	appErrors "github.com/turtacn/LexCite/pkg/errors"
)

func TestDecisionRepository_Decisions(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{data: [][]any{
		{
			"11", "de",
			`{"facts":"Sachverhalt","considerations":"Erwägungen"}`,
			`[{"type":"law","text":"Art. 1 OR","url":null},
			  {"type":"ruling","text":"BGE 121 III 38","url":"https://example.org/bge"},
			  {"type":"commentary","text":"BSK OR I","url":null}]`,
		},
		{"12", "fr", `{}`, `[]`},
	}}}

	repo := NewDecisionRepository(q, decision.Filter{Languages: []string{"de", "fr"}, Limit: 10}, nil)
	docs, err := repo.Decisions(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	d := docs[0]
	assert.Equal(t, "11", d.ID)
	assert.Equal(t, "de", d.Language)
	assert.Equal(t, "Sachverhalt", d.Fields[decision.FieldFacts])
	assert.Equal(t, []decision.Mention{{Text: "Art. 1 OR"}}, d.MentionsOf(citation.TypeLaw))
	assert.Equal(t, []decision.Mention{{Text: "BGE 121 III 38", URL: "https://example.org/bge"}}, d.MentionsOf(citation.TypeRuling))

	assert.Empty(t, docs[1].Mentions)
	assert.Equal(t, []any{[]string{"de", "fr"}, 10}, q.args)
	assert.True(t, q.rows.closed)
}

func TestDecisionRepository_NoFilterPassesNulls(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{}}
	_, err := NewDecisionRepository(q, decision.Filter{}, nil).Decisions(context.Background())
	require.NoError(t, err)
	require.Len(t, q.args, 2)
	assert.Nil(t, q.args[0])
	assert.Nil(t, q.args[1])
}

func TestDecisionRepository_Errors(t *testing.T) {
	_, err := NewDecisionRepository(&fakeQuerier{err: errors.New("down")}, decision.Filter{}, nil).Decisions(context.Background())
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeDatabaseError))

	q := &fakeQuerier{rows: &fakeRows{data: [][]any{{"1", "de", `not json`, `[]`}}}}
	_, err = NewDecisionRepository(q, decision.Filter{}, nil).Decisions(context.Background())
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeSerialization))

	q = &fakeQuerier{rows: &fakeRows{err: errors.New("conn reset")}}
	_, err = NewDecisionRepository(q, decision.Filter{}, nil).Decisions(context.Background())
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeDatabaseError))
}

func TestAbbreviationRepository_Rows(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{data: [][]any{
		{"ch", "de", "OR", "220"},
		{"zh", "de", "StG", "631.1"},
	}}}

	rows, err := NewAbbreviationRepository(q).AbbreviationRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []citation.AbbreviationRow{
		{Canton: "ch", Language: "de", Abbreviation: "OR", SRNumber: "220"},
		{Canton: "zh", Language: "de", Abbreviation: "StG", SRNumber: "631.1"},
	}, rows)
	assert.Contains(t, q.sql, "FROM lexfind")
}
