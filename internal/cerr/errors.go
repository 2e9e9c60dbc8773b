package cerr

import (
	"fmt"
)

// CrawlError is the structured error type for cupertino. It carries enough
// context for logging, retry decisions, and user-facing presentation without
// re-deriving those from a bare error string.
type CrawlError struct {
	// Code is the unique error code (e.g. "ERR_201_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error kind this code belongs to.
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *CrawlError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CrawlError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code, enabling
// errors.Is() to work with CrawlError.
func (e *CrawlError) Is(target error) bool {
	if t, ok := target.(*CrawlError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error. Returns the error for
// method chaining.
func (e *CrawlError) WithDetail(key, value string) *CrawlError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user. Returns the
// error for method chaining.
func (e *CrawlError) WithSuggestion(suggestion string) *CrawlError {
	e.Suggestion = suggestion
	return e
}

// New creates a new CrawlError with the given code and message. Category,
// severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *CrawlError {
	return &CrawlError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a CrawlError from an existing error. The error's message
// becomes the CrawlError message.
func Wrap(code string, err error) *CrawlError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// TransientFetchError creates an error for a retryable fetch/render failure
// (network error, HTTP 5xx, render timeout). This kind is retried up
// to 2 times with a renderer recycle between attempts.
func TransientFetchError(code string, message string, cause error) *CrawlError {
	return New(code, message, cause)
}

// NotFoundError creates an error for an HTTP 404 response. The page is
// skipped and counted, never retried.
func NotFoundError(message string, cause error) *CrawlError {
	return New(ErrCodeNotFound, message, cause)
}

// ForbiddenError creates an error for an HTTP 403 response.
func ForbiddenError(message string, cause error) *CrawlError {
	return New(ErrCodeForbidden, message, cause)
}

// RateLimitedError creates an error for a detected rate limit response. It
// halts the crawl loop for the remainder of the session rather than failing
// a single page.
func RateLimitedError(message string, cause error) *CrawlError {
	return New(ErrCodeRateLimited, message, cause)
}

// ContentParseErrorOf creates an error for malformed HTML, encoding, or JSON
// that could not be converted into a documentation page.
func ContentParseErrorOf(code string, message string, cause error) *CrawlError {
	return New(code, message, cause)
}

// PersistenceError creates an error for a SQLite write failure, full disk, or
// metadata I/O failure. This kind is fatal and aborts the operation.
func PersistenceError(code string, message string, cause error) *CrawlError {
	return New(code, message, cause)
}

// SchemaMismatchError creates an error for an index whose schema version
// does not match what the running binary expects.
func SchemaMismatchError(message string, cause error) *CrawlError {
	return New(ErrCodeSchemaMismatch, message, cause)
}

// InvalidQueryError creates an error for a malformed or empty search query.
func InvalidQueryError(code string, message string) *CrawlError {
	return New(code, message, nil)
}

// MissingPrerequisiteError creates an error for an operation attempted
// before its prerequisite exists (no index built, no output directory).
func MissingPrerequisiteError(code string, message string) *CrawlError {
	return New(code, message, nil)
}

// InternalError creates an error for conditions that should not occur during
// normal operation.
func InternalError(message string, cause error) *CrawlError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable. Returns true if the error is
// a CrawlError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(*CrawlError); ok {
		return ce.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity. Fatal errors should abort
// the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(*CrawlError); ok {
		return ce.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a CrawlError. Returns empty string
// if not a CrawlError.
func GetCode(err error) string {
	if ce, ok := err.(*CrawlError); ok {
		return ce.Code
	}
	return ""
}

// GetCategory extracts the category from a CrawlError. Returns empty string
// if not a CrawlError.
func GetCategory(err error) Category {
	if ce, ok := err.(*CrawlError); ok {
		return ce.Category
	}
	return ""
}
