package citation

import (
	"github.com/turtacn/LexCite/pkg/errors"
)

// Sentinel errors. Parser failures wrap these with the offending input as
// detail; compare with errors.Is.
var (
	ErrMalformedCitation     = errors.New(errors.ErrCodeMalformedCitation, "malformed citation")
	ErrUnknownAbbreviation   = errors.New(errors.ErrCodeUnknownAbbreviation, "unknown abbreviation")
	ErrAmbiguousAbbreviation = errors.New(errors.ErrCodeAmbiguousAbbreviation, "ambiguous abbreviation")
	ErrInvalidKey            = errors.New(errors.ErrCodeInvalidCitationKey, "invalid citation key")
)

// FailureCategory classifies a dropped mention for run diagnostics.
type FailureCategory string

const (
	FailureMalformed           FailureCategory = "malformed"
	FailureUnknownAbbreviation FailureCategory = "unknown_abbreviation"
	FailureAmbiguous           FailureCategory = "ambiguous_abbreviation"
	FailureOther               FailureCategory = "other"
)

// FailureCategories lists the recoverable categories in reporting order.
func FailureCategories() []FailureCategory {
	return []FailureCategory{FailureMalformed, FailureUnknownAbbreviation}
}

// CategoryOf maps a parser error to its FailureCategory.
func CategoryOf(err error) FailureCategory {
	switch {
	case errors.Is(err, ErrMalformedCitation):
		return FailureMalformed
	case errors.Is(err, ErrUnknownAbbreviation):
		return FailureUnknownAbbreviation
	case errors.Is(err, ErrAmbiguousAbbreviation):
		return FailureAmbiguous
	}
	return FailureOther
}

// IsRecoverable reports whether err only drops the single mention.
func IsRecoverable(err error) bool {
	switch CategoryOf(err) {
	case FailureMalformed, FailureUnknownAbbreviation:
		return true
	}
	return false
}
