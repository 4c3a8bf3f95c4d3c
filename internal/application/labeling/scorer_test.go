package labeling

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/LexCite/internal/domain/citation"
)

func TestIDF(t *testing.T) {
	assert.InDelta(t, 1.0, IDF(3, 3), 1e-12)
	assert.InDelta(t, math.Log(4.0/2.0)+1, IDF(3, 1), 1e-12)
	assert.Greater(t, IDF(2, 1), IDF(2, 2))
}

func TestScorer_RarerKeyScoresHigher(t *testing.T) {
	maps := []map[citation.Key]int{
		{key220("7a"): 1, key220("12"): 1},
		{key220("7a"): 1},
	}
	vocab := BuildVocabulary(citation.TypeLaw, maps, 0)
	m := BuildFrequencyMatrix(maps, vocab)

	df := m.DocumentFrequencies()
	i7a, _ := vocab.Index(key220("7a"))
	i12, _ := vocab.Index(key220("12"))
	assert.Equal(t, 2, df[i7a])
	assert.Equal(t, 1, df[i12])
	assert.Greater(t, IDF(2, df[i12]), IDF(2, df[i7a]))

	scores, err := NewScorer(2, nil).Score(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Greater(t, scores[0][key220("12")], scores[0][key220("7a")])
	assert.InDelta(t, 1.0, scores[1][key220("7a")], 1e-12)

	w7a, w12 := IDF(2, 2), IDF(2, 1)
	norm := math.Sqrt(w7a*w7a + w12*w12)
	assert.InDelta(t, w12/norm, scores[0][key220("12")], 1e-12)
	assert.InDelta(t, w7a/norm, scores[0][key220("7a")], 1e-12)
}

func TestScorer_BoundsAndSupport(t *testing.T) {
	maps := []map[citation.Key]int{
		{key220("1"): 5, key220("2"): 1, key220("3"): 2},
		{key220("1"): 1},
		{key220("2"): 3, key220("4"): 1},
		{key220("5"): 1},
	}
	vocab := BuildVocabulary(citation.TypeLaw, maps, 0)
	scores, err := NewScorer(4, nil).Score(context.Background(), BuildFrequencyMatrix(maps, vocab))
	require.NoError(t, err)

	for i, row := range scores {
		var sumSq float64
		for k, s := range row {
			assert.Contains(t, maps[i], k)
			assert.Greater(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
			sumSq += s * s
		}
		assert.Len(t, row, len(maps[i]))
		assert.InDelta(t, 1.0, sumSq, 1e-9)
	}
}

func TestScorer_KeysOutsideVocabularyAreDropped(t *testing.T) {
	maps := []map[citation.Key]int{{key220("1"): 1, key220("2"): 1}}
	vocab := NewVocabulary(citation.TypeLaw, []citation.Key{key220("1")})

	scores, err := NewScorer(1, nil).Score(context.Background(), BuildFrequencyMatrix(maps, vocab))
	require.NoError(t, err)
	assert.Equal(t, map[citation.Key]float64{key220("1"): 1}, scores[0])
}
