// Package errors provides structured error handling for applocate.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (index, fixture files)
//   - 4XX: Validation errors (query, flags)
//   - 5XX: Internal and source errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategorySource indicates a discovery source failed or timed out.
	CategorySource Category = "SOURCE"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid  = "ERR_101_CONFIG_INVALID"
	ErrCodeConfigNotFound = "ERR_102_CONFIG_NOT_FOUND"

	// IO errors (200-299)
	ErrCodeIndexRead   = "ERR_201_INDEX_READ"
	ErrCodeIndexWrite  = "ERR_202_INDEX_WRITE"
	ErrCodeFixtureRead = "ERR_203_FIXTURE_READ"

	// Validation errors (400-499)
	ErrCodeInvalidInput     = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty       = "ERR_402_QUERY_EMPTY"
	ErrCodeConflictingFlags = "ERR_403_CONFLICTING_FLAGS"
	ErrCodeNoResults        = "ERR_404_NO_RESULTS"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeSourceFailed  = "ERR_502_SOURCE_FAILED"
	ErrCodeSourceTimeout = "ERR_503_SOURCE_TIMEOUT"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code {
	case ErrCodeSourceFailed, ErrCodeSourceTimeout:
		return CategorySource
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeInternal:
		return SeverityFatal
	case ErrCodeSourceFailed, ErrCodeSourceTimeout, ErrCodeIndexRead, ErrCodeIndexWrite:
		return SeverityWarning
	case ErrCodeNoResults:
		return SeverityInfo
	}
	return SeverityError
}

// Exit codes returned by the CLI.
const (
	ExitOK        = 0
	ExitNoResults = 1
	ExitUsage     = 2
	ExitInternal  = 3
)

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	le, ok := As(err)
	if !ok {
		return ExitInternal
	}
	switch {
	case le.Code == ErrCodeNoResults:
		return ExitNoResults
	case le.Category == CategoryValidation, le.Category == CategoryConfig:
		return ExitUsage
	case le.Code == ErrCodeFixtureRead:
		return ExitUsage
	default:
		return ExitInternal
	}
}
