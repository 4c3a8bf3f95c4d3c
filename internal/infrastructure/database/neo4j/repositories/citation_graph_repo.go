// Package repositories writes LexCite results into the Neo4j citation graph.
package repositories

import (
	"context"
	"sort"

	"github.com/turtacn/LexCite/internal/application/labeling"
	"github.com/turtacn/LexCite/internal/domain/citation"
	driver "github.com/turtacn/LexCite/internal/infrastructure/database/neo4j"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/pkg/errors"
)

// GraphDriver is the part of *neo4j.Driver the writer uses.
type GraphDriver interface {
	ExecuteWrite(ctx context.Context, work driver.TransactionWork) (any, error)
}

var schemaStatements = []string{
	`CREATE CONSTRAINT decision_id IF NOT EXISTS FOR (d:Decision) REQUIRE d.id IS UNIQUE`,
	`CREATE CONSTRAINT law_article_key IF NOT EXISTS FOR (a:LawArticle) REQUIRE a.key IS UNIQUE`,
	`CREATE CONSTRAINT ruling_key IF NOT EXISTS FOR (r:Ruling) REQUIRE r.key IS UNIQUE`,
}

const upsertLawCitationsCypher = `
UNWIND $rows AS row
MERGE (d:Decision {id: row.decision_id})
SET d.language = row.language, d.run_id = $run_id
MERGE (a:LawArticle {key: row.key})
ON CREATE SET a.sr_number = row.statute, a.article = row.article
MERGE (d)-[r:CITES]->(a)
SET r.score = row.score, r.count = row.count, r.run_id = $run_id
RETURN count(r) AS relationships`

const upsertRulingCitationsCypher = `
UNWIND $rows AS row
MERGE (d:Decision {id: row.decision_id})
SET d.language = row.language, d.run_id = $run_id
MERGE (g:Ruling {key: row.key})
ON CREATE SET g.volume = row.volume, g.part = row.part, g.page = row.page
MERGE (d)-[r:CITES]->(g)
SET r.score = row.score, r.count = row.count, r.run_id = $run_id
RETURN count(r) AS relationships`

// CitationGraphWriter is the labeling.Sink that upserts
// (:Decision)-[:CITES {score,count}]->(:LawArticle|:Ruling) edges.
type CitationGraphWriter struct {
	driver    GraphDriver
	batchSize int
	log       logging.Logger
}

var _ labeling.Sink = (*CitationGraphWriter)(nil)

// NewCitationGraphWriter writes UNWIND batches of at most batchSize edges.
func NewCitationGraphWriter(d GraphDriver, batchSize int, log logging.Logger) *CitationGraphWriter {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &CitationGraphWriter{
		driver:    d,
		batchSize: batchSize,
		log:       logging.OrNop(log).Named("neo4j"),
	}
}

// Name implements labeling.Sink.
func (w *CitationGraphWriter) Name() string { return "neo4j" }

// EnsureSchema creates the uniqueness constraints backing the MERGEs.
func (w *CitationGraphWriter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		_, err := w.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		})
		if err != nil {
			return errors.Wrap(err, errors.CodeUnknown, "failed to create graph constraints")
		}
	}
	return nil
}

// Export implements labeling.Sink.
func (w *CitationGraphWriter) Export(ctx context.Context, res *labeling.Result) error {
	if res == nil {
		return errors.New(errors.ErrCodeBadRequest, "nil result")
	}
	if err := w.EnsureSchema(ctx); err != nil {
		return err
	}

	total := 0
	for _, t := range citation.Types() {
		cypher := upsertLawCitationsCypher
		if t == citation.TypeRuling {
			cypher = upsertRulingCitationsCypher
		}
		rows := EdgeRows(res.Queries, t)
		for start := 0; start < len(rows); start += w.batchSize {
			batch := rows[start:min(start+w.batchSize, len(rows))]
			n, err := w.writeBatch(ctx, cypher, res.RunID, batch)
			if err != nil {
				return errors.Wrapf(err, errors.CodeUnknown, "failed to write %s edges", t)
			}
			total += n
		}
	}

	w.log.Info("citation graph updated",
		logging.String("run_id", res.RunID),
		logging.Int("decisions", len(res.Queries)),
		logging.Int("relationships", total),
	)
	return nil
}

func (w *CitationGraphWriter) writeBatch(ctx context.Context, cypher, runID string, rows []map[string]any) (int, error) {
	out, err := w.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"rows": rows, "run_id": runID})
		if err != nil {
			return nil, err
		}
		return driver.SingleInt(ctx, result)
	})
	if err != nil {
		return 0, err
	}
	n, _ := out.(int64)
	return int(n), nil
}

// EdgeRows flattens the relevance maps of type t into UNWIND parameter rows,
// ordered by decision then citation.
func EdgeRows(queries []*labeling.Query, t citation.Type) []map[string]any {
	var rows []map[string]any
	for _, q := range queries {
		scores := q.Relevance[t]
		keys := make([]citation.Key, 0, len(scores))
		for k := range scores {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })

		for _, k := range keys {
			row := map[string]any{
				"decision_id": q.DecisionID,
				"language":    q.Language,
				"key":         k.String(),
				"score":       scores[k],
				"count":       int64(q.Counts[t][k]),
			}
			switch k.Type {
			case citation.TypeLaw:
				row["statute"] = k.Statute
				row["article"] = k.Article
			case citation.TypeRuling:
				row["volume"] = int64(k.Volume)
				row["part"] = k.Part
				row["page"] = int64(k.Page)
			}
			rows = append(rows, row)
		}
	}
	return rows
}
