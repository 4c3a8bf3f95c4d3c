package citation

// RulingIndex is the set of rulings available as retrieval candidates. A
// nil *RulingIndex accepts every key.
type RulingIndex struct {
	keys map[Key]struct{}
}

// NewRulingIndex builds an index over keys. Non-ruling keys are ignored.
func NewRulingIndex(keys []Key) *RulingIndex {
	idx := &RulingIndex{keys: make(map[Key]struct{}, len(keys))}
	for _, k := range keys {
		if k.Type == TypeRuling {
			idx.keys[k] = struct{}{}
		}
	}
	return idx
}

// Contains reports whether k is part of the index.
func (idx *RulingIndex) Contains(k Key) bool {
	if idx == nil {
		return true
	}
	_, ok := idx.keys[k]
	return ok
}

// Len is the number of indexed rulings; 0 for a nil index.
func (idx *RulingIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.keys)
}
