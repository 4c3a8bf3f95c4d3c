package labeling

import (
	"slices"

	"github.com/turtacn/LexCite/internal/domain/citation"
)

// FrequencyMatrix is a document × vocabulary matrix of raw citation counts
// in compressed sparse row form. Row i belongs to the i-th retained
// document; within a row, columns ascend.
type FrequencyMatrix struct {
	vocab   *Vocabulary
	rowPtr  []int
	columns []int
	values  []int
}

// BuildFrequencyMatrix fills one row per count map. Keys missing from vocab
// are skipped.
func BuildFrequencyMatrix(countMaps []map[citation.Key]int, vocab *Vocabulary) *FrequencyMatrix {
	m := &FrequencyMatrix{
		vocab:  vocab,
		rowPtr: make([]int, 1, len(countMaps)+1),
	}
	for _, counts := range countMaps {
		row := make([]int, 0, len(counts))
		for k, n := range counts {
			if n <= 0 {
				continue
			}
			if col, ok := vocab.Index(k); ok {
				row = append(row, col)
			}
		}
		slices.Sort(row)
		for _, col := range row {
			m.columns = append(m.columns, col)
			m.values = append(m.values, counts[vocab.Key(col)])
		}
		m.rowPtr = append(m.rowPtr, len(m.columns))
	}
	return m
}

// Rows is the number of documents.
func (m *FrequencyMatrix) Rows() int { return len(m.rowPtr) - 1 }

// Cols is the vocabulary size.
func (m *FrequencyMatrix) Cols() int { return m.vocab.Len() }

// NNZ is the number of stored entries.
func (m *FrequencyMatrix) NNZ() int { return len(m.values) }

// Vocabulary returns the column vocabulary.
func (m *FrequencyMatrix) Vocabulary() *Vocabulary { return m.vocab }

// Row returns the column indices and counts of row i. The slices alias the
// matrix and must not be modified.
func (m *FrequencyMatrix) Row(i int) (columns []int, counts []int) {
	lo, hi := m.rowPtr[i], m.rowPtr[i+1]
	return m.columns[lo:hi], m.values[lo:hi]
}

// At returns the count at (row, col).
func (m *FrequencyMatrix) At(row, col int) int {
	cols, vals := m.Row(row)
	lo, hi := 0, len(cols)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		switch {
		case cols[mid] == col:
			return vals[mid]
		case cols[mid] < col:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// DocumentFrequencies returns, per column, the number of rows with a
// non-zero entry.
func (m *FrequencyMatrix) DocumentFrequencies() []int {
	df := make([]int, m.Cols())
	for _, col := range m.columns {
		df[col]++
	}
	return df
}
