package errors

import (
	"errors"
	"fmt"
)

// LocateError is the structured error type for applocate.
// It provides rich context for error handling, logging, and user presentation.
type LocateError struct {
	// Code is the unique error code (e.g., "ERR_402_QUERY_EMPTY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *LocateError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *LocateError) Unwrap() error {
	return e.Cause
}

// Is matches another LocateError by code.
func (e *LocateError) Is(target error) bool {
	if t, ok := target.(*LocateError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *LocateError) WithDetail(key, value string) *LocateError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *LocateError) WithSuggestion(suggestion string) *LocateError {
	e.Suggestion = suggestion
	return e
}

// New creates a LocateError. Category and severity are derived from the code.
func New(code string, message string, cause error) *LocateError {
	return &LocateError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a LocateError from an existing error.
func Wrap(code string, err error) *LocateError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *LocateError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *LocateError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *LocateError {
	return New(ErrCodeInternal, message, cause)
}

// SourceError records a failed discovery source.
func SourceError(source string, cause error) *LocateError {
	return New(ErrCodeSourceFailed, fmt.Sprintf("source %s failed: %v", source, cause), cause).
		WithDetail("source", source)
}

// SourceTimeout records a discovery source that hit its deadline.
func SourceTimeout(source string, cause error) *LocateError {
	return New(ErrCodeSourceTimeout, fmt.Sprintf("source %s timed out", source), cause).
		WithDetail("source", source)
}

// NoResults is the empty-result condition reported by the CLI.
func NoResults(query string) *LocateError {
	return New(ErrCodeNoResults, fmt.Sprintf("no results for %q", query), nil).
		WithSuggestion("Lower --confidence-min, add --all, or drop --strict")
}

// As extracts a LocateError from an error chain.
func As(err error) (*LocateError, bool) {
	var le *LocateError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	le, ok := As(err)
	return ok && le.Severity == SeverityFatal
}

// GetCode extracts the error code from a LocateError.
// Returns empty string if not a LocateError.
func GetCode(err error) string {
	if le, ok := As(err); ok {
		return le.Code
	}
	return ""
}

// GetCategory extracts the category from a LocateError.
// Returns empty string if not a LocateError.
func GetCategory(err error) Category {
	if le, ok := As(err); ok {
		return le.Category
	}
	return ""
}
