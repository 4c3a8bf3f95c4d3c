package labeling

import (
	"slices"

	"github.com/turtacn/LexCite/internal/domain/citation"
)

// Vocabulary is the ordered set of canonical keys of one citation type. It
// is immutable once built.
type Vocabulary struct {
	typ   citation.Type
	keys  []citation.Key
	index map[citation.Key]int
}

// CorpusFrequencies sums the per-document counts of every key.
func CorpusFrequencies(countMaps []map[citation.Key]int) map[citation.Key]int {
	freq := make(map[citation.Key]int)
	for _, m := range countMaps {
		for k, n := range m {
			freq[k] += n
		}
	}
	return freq
}

// BuildVocabulary computes the ordered key union of countMaps. When limit is
// positive only the limit keys with the highest corpus mention counts are
// kept, ties going to the key that sorts first.
func BuildVocabulary(t citation.Type, countMaps []map[citation.Key]int, limit int) *Vocabulary {
	freq := CorpusFrequencies(countMaps)
	keys := make([]citation.Key, 0, len(freq))
	for k := range freq {
		keys = append(keys, k)
	}

	if limit > 0 && len(keys) > limit {
		slices.SortFunc(keys, func(a, b citation.Key) int {
			if fa, fb := freq[a], freq[b]; fa != fb {
				if fa > fb {
					return -1
				}
				return 1
			}
			return a.Compare(b)
		})
		keys = keys[:limit]
	}
	return NewVocabulary(t, keys)
}

// NewVocabulary returns a vocabulary over keys in citation order.
// Duplicates collapse.
func NewVocabulary(t citation.Type, keys []citation.Key) *Vocabulary {
	sorted := slices.Clone(keys)
	citation.SortKeys(sorted)
	sorted = slices.Compact(sorted)

	index := make(map[citation.Key]int, len(sorted))
	for i, k := range sorted {
		index[k] = i
	}
	return &Vocabulary{typ: t, keys: sorted, index: index}
}

// Type is the citation type of the vocabulary.
func (v *Vocabulary) Type() citation.Type { return v.typ }

// Keys returns a copy of the ordered keys.
func (v *Vocabulary) Keys() []citation.Key { return slices.Clone(v.keys) }

// Len is the number of keys.
func (v *Vocabulary) Len() int { return len(v.keys) }

// Index returns the column of key.
func (v *Vocabulary) Index(key citation.Key) (int, bool) {
	i, ok := v.index[key]
	return i, ok
}

// Key returns the key at column i.
func (v *Vocabulary) Key(i int) citation.Key { return v.keys[i] }
