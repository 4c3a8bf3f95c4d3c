package errors

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeOK              ErrorCode = "OK"
	ErrCodeUnknown         ErrorCode = "COMMON_000"
	ErrCodeInternal        ErrorCode = "COMMON_001"
	ErrCodeBadRequest      ErrorCode = "COMMON_002"
	ErrCodeNotFound        ErrorCode = "COMMON_005"
	ErrCodeTimeout         ErrorCode = "COMMON_009"
	ErrCodeValidation      ErrorCode = "COMMON_010"
	ErrCodeSerialization   ErrorCode = "COMMON_011"
	ErrCodeDatabaseError   ErrorCode = "COMMON_012"
	ErrCodeCacheError      ErrorCode = "COMMON_013"
	ErrCodeExternalService ErrorCode = "COMMON_014"
	ErrCodeStorageError    ErrorCode = "COMMON_017"
	ErrCodeMessagingError  ErrorCode = "COMMON_018"
)

// Citation Module Error Codes
const (
	// ErrCodeMalformedCitation: the mention does not have the structure of a
	// citation. The mention is dropped.
	ErrCodeMalformedCitation ErrorCode = "CIT_001"
	// ErrCodeUnknownAbbreviation: well-formed, but the law or ruling lies
	// outside the reference corpus. The mention is dropped.
	ErrCodeUnknownAbbreviation ErrorCode = "CIT_002"
	// ErrCodeAmbiguousAbbreviation: the reference table maps one abbreviation
	// to several statutes. Fatal.
	ErrCodeAmbiguousAbbreviation ErrorCode = "CIT_003"
	// ErrCodeEmptyCitationSet: a document has no parseable citation of a
	// required type. Filtering decision, never raised to callers.
	ErrCodeEmptyCitationSet ErrorCode = "CIT_004"
	// ErrCodeInvalidCitationKey: unknown citation type or unparseable key.
	ErrCodeInvalidCitationKey ErrorCode = "CIT_005"
)

// Dataset Module Error Codes
const (
	ErrCodeDatasetLoadFailed   ErrorCode = "DATA_001"
	ErrCodeDatasetExportFailed ErrorCode = "DATA_002"
	ErrCodeDatasetEmpty        ErrorCode = "DATA_003"
)

// Aliases
const (
	CodeOK           = ErrCodeOK
	CodeUnknown      = ErrCodeUnknown
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
)

// fatalCodes lists the codes that must abort a labeling run.
var fatalCodes = map[ErrorCode]bool{
	ErrCodeAmbiguousAbbreviation: true,
	ErrCodeDatasetLoadFailed:     true,
	ErrCodeDatasetExportFailed:   true,
	ErrCodeDatasetEmpty:          true,
}

// IsFatalCode reports whether code marks a run-aborting condition.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}
