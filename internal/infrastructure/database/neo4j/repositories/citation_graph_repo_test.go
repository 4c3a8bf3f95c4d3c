package repositories

import (
	"context"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/LexCite/internal/application/labeling"
	"github.com/turtacn/LexCite/internal/domain/citation"
	driver "github.com/turtacn/LexCite/internal/infrastructure/database/neo4j"
	"github.com/turtacn/LexCite/pkg/errors"
)

type runCall struct {
	cypher string
	params map[string]any
}

// fakeDriver executes work against a recording transaction. Queries
// returning a relationship count report the number of UNWIND rows.
type fakeDriver struct {
	calls   []runCall
	failOn  string
	failErr error
}

func (f *fakeDriver) ExecuteWrite(ctx context.Context, work driver.TransactionWork) (any, error) {
	return work(&fakeTx{d: f})
}

type fakeTx struct{ d *fakeDriver }

func (tx *fakeTx) Run(_ context.Context, cypher string, params map[string]any) (driver.Result, error) {
	tx.d.calls = append(tx.d.calls, runCall{cypher: cypher, params: params})
	if tx.d.failOn != "" && strings.Contains(cypher, tx.d.failOn) {
		return nil, tx.d.failErr
	}
	n := int64(0)
	if rows, ok := params["rows"].([]map[string]any); ok {
		n = int64(len(rows))
	}
	return &fakeResult{record: &neo4j.Record{Keys: []string{"relationships"}, Values: []any{n}}}, nil
}

type fakeResult struct {
	record *neo4j.Record
	done   bool
}

func (r *fakeResult) Next(context.Context) bool {
	if r.done {
		return false
	}
	r.done = true
	return true
}
func (r *fakeResult) Record() *neo4j.Record { return r.record }
func (r *fakeResult) Err() error            { return nil }

var (
	or1  = citation.LawKey("220", "1")
	or7a = citation.LawKey("220", "7a")
	zgb2 = citation.LawKey("210", "2")
	bge  = citation.RulingKey(121, "III", 38)
)

func graphResult() *labeling.Result {
	return &labeling.Result{
		RunID: "run-1",
		Queries: []*labeling.Query{
			{
				DecisionID: "d1",
				Language:   "de",
				Relevance: map[citation.Type]map[citation.Key]float64{
					citation.TypeLaw:    {or7a: 0.8, or1: 0.6},
					citation.TypeRuling: {bge: 1},
				},
				Counts: map[citation.Type]map[citation.Key]int{
					citation.TypeLaw:    {or7a: 2, or1: 1},
					citation.TypeRuling: {bge: 1},
				},
			},
			{
				DecisionID: "d2",
				Language:   "fr",
				Relevance: map[citation.Type]map[citation.Key]float64{
					citation.TypeLaw:    {zgb2: 1},
					citation.TypeRuling: {bge: 1},
				},
			},
		},
	}
}

func TestEdgeRows(t *testing.T) {
	rows := EdgeRows(graphResult().Queries, citation.TypeLaw)
	require.Len(t, rows, 3)

	assert.Equal(t, map[string]any{
		"decision_id": "d1",
		"language":    "de",
		"key":         "SR 220 Art. 1",
		"score":       0.6,
		"count":       int64(1),
		"statute":     "220",
		"article":     "1",
	}, rows[0])
	assert.Equal(t, "SR 220 Art. 7a", rows[1]["key"])
	assert.Equal(t, "d2", rows[2]["decision_id"])
	assert.Equal(t, int64(0), rows[2]["count"], "missing counts default to zero")

	rulings := EdgeRows(graphResult().Queries, citation.TypeRuling)
	require.Len(t, rulings, 2)
	assert.Equal(t, int64(121), rulings[0]["volume"])
	assert.Equal(t, "III", rulings[0]["part"])
	assert.Equal(t, int64(38), rulings[0]["page"])
}

func TestCitationGraphWriter_Export(t *testing.T) {
	d := &fakeDriver{}
	w := NewCitationGraphWriter(d, 2, nil)
	assert.Equal(t, "neo4j", w.Name())

	require.NoError(t, w.Export(context.Background(), graphResult()))

	// 3 constraints, law rows in batches of 2 (2 + 1), one ruling batch.
	require.Len(t, d.calls, 3+2+1)
	for _, c := range d.calls[:3] {
		assert.Contains(t, c.cypher, "CREATE CONSTRAINT")
	}
	assert.Contains(t, d.calls[3].cypher, ":LawArticle")
	assert.Len(t, d.calls[3].params["rows"], 2)
	assert.Len(t, d.calls[4].params["rows"], 1)
	assert.Equal(t, "run-1", d.calls[4].params["run_id"])
	assert.Contains(t, d.calls[5].cypher, ":Ruling")
	assert.Len(t, d.calls[5].params["rows"], 2)
}

func TestCitationGraphWriter_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New(errors.ErrCodeDatabaseError, "boom")

	t.Run("schema", func(t *testing.T) {
		d := &fakeDriver{failOn: "CREATE CONSTRAINT", failErr: boom}
		err := NewCitationGraphWriter(d, 10, nil).Export(ctx, graphResult())
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
		assert.Len(t, d.calls, 1)
	})

	t.Run("rulings", func(t *testing.T) {
		d := &fakeDriver{failOn: "MERGE (g:Ruling", failErr: boom}
		err := NewCitationGraphWriter(d, 10, nil).Export(ctx, graphResult())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rulings edges")
	})

	t.Run("nil result", func(t *testing.T) {
		err := NewCitationGraphWriter(&fakeDriver{}, 0, nil).Export(ctx, nil)
		assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
	})
}
