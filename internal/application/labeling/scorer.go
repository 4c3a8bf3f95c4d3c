package labeling

import (
	"context"
	"math"

	"github.com/turtacn/LexCite/internal/common"
	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
)

// IDF is the smoothed inverse document frequency ln((1+n)/(1+df)) + 1 of a
// key occurring in df of n documents.
func IDF(n, df int) float64 {
	return math.Log(float64(1+n)/float64(1+df)) + 1
}

// Scorer turns a frequency matrix into per-document relevance maps:
// w = tf · idf, each row scaled to unit L2 norm.
//
// Document frequencies are taken over every row of the matrix, so a
// document's own citations count towards the idf used to score it.
type Scorer struct {
	processor common.BatchProcessor[int, map[citation.Key]float64]
}

// NewScorer returns a Scorer scoring rows on up to workers goroutines.
func NewScorer(workers int, logger logging.Logger) *Scorer {
	return &Scorer{
		processor: common.NewBatchProcessor[int, map[citation.Key]float64](
			common.WithName("scorer"),
			common.WithMaxConcurrency(workers),
			common.WithBatchLogger(logger),
		),
	}
}

// Score returns one relevance map per matrix row. Every value lies in
// (0, 1] and every key is a non-zero column of its row.
func (s *Scorer) Score(ctx context.Context, m *FrequencyMatrix) ([]map[citation.Key]float64, error) {
	n := m.Rows()
	df := m.DocumentFrequencies()
	idf := make([]float64, len(df))
	for col, d := range df {
		idf[col] = IDF(n, d)
	}

	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}

	res, err := s.processor.Process(ctx, rows, func(_ context.Context, _ int, row int) (map[citation.Key]float64, error) {
		return scoreRow(m, idf, row), nil
	})
	if err != nil {
		return nil, err
	}
	return res.Values(), nil
}

func scoreRow(m *FrequencyMatrix, idf []float64, row int) map[citation.Key]float64 {
	cols, counts := m.Row(row)
	weights := make([]float64, len(cols))
	var norm float64
	for i, col := range cols {
		weights[i] = float64(counts[i]) * idf[col]
		norm += weights[i] * weights[i]
	}
	norm = math.Sqrt(norm)

	scores := make(map[citation.Key]float64, len(cols))
	if norm == 0 {
		return scores
	}
	vocab := m.Vocabulary()
	for i, col := range cols {
		scores[vocab.Key(col)] = math.Min(weights[i]/norm, 1)
	}
	return scores
}
