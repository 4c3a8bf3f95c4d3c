package decision

import (
	"context"

	"github.com/turtacn/LexCite/pkg/errors"
)

// ErrInvalidDecision is returned by sources for records that cannot be used.
var ErrInvalidDecision = errors.New(errors.ErrCodeValidation, "invalid decision")

// Source yields the decisions of the corpus in a stable order.
type Source interface {
	Decisions(ctx context.Context) ([]*Decision, error)
}

// Filter restricts the decisions a Source returns.
type Filter struct {
	Languages []string
	Limit     int
}

// Accepts reports whether language passes the filter's language list.
func (f Filter) Accepts(language string) bool {
	if len(f.Languages) == 0 {
		return true
	}
	for _, l := range f.Languages {
		if l == language {
			return true
		}
	}
	return false
}
