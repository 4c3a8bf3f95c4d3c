package repositories

import (
	"context"

	"github.com/turtacn/LexCite/internal/domain/citation"
	appErrors "github.com/turtacn/LexCite/pkg/errors"
)

const selectAbbreviationsSQL = `
SELECT COALESCE(canton, ''), COALESCE(language, ''), COALESCE(abbreviation, ''), COALESCE(sr_number, '')
FROM lexfind
ORDER BY sr_number, language, abbreviation`

// AbbreviationRepository implements citation.AbbreviationSource over the
// lexfind table.
type AbbreviationRepository struct {
	q Querier
}

var _ citation.AbbreviationSource = (*AbbreviationRepository)(nil)

// NewAbbreviationRepository returns a repository reading through q.
func NewAbbreviationRepository(q Querier) *AbbreviationRepository {
	return &AbbreviationRepository{q: q}
}

// AbbreviationRows returns every lexfind row.
func (r *AbbreviationRepository) AbbreviationRows(ctx context.Context) ([]citation.AbbreviationRow, error) {
	rows, err := r.q.Query(ctx, selectAbbreviationsSQL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to query abbreviations")
	}
	defer rows.Close()

	var out []citation.AbbreviationRow
	for rows.Next() {
		var row citation.AbbreviationRow
		if err := rows.Scan(&row.Canton, &row.Language, &row.Abbreviation, &row.SRNumber); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan abbreviation")
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate abbreviations")
	}
	return out, nil
}
