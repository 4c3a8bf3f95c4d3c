package citation

import "context"

// AbbreviationSource loads the raw statute abbreviation table.
type AbbreviationSource interface {
	AbbreviationRows(ctx context.Context) ([]AbbreviationRow, error)
}

// RulingSource loads the keys of the rulings available as candidates.
type RulingSource interface {
	Rulings(ctx context.Context) ([]Key, error)
}
