package cerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrawlError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("connection reset")

	ce := New(ErrCodeFetchTimeout, "fetch timed out: https://developer.apple.com/x", originalErr)

	require.NotNil(t, ce)
	assert.Equal(t, originalErr, errors.Unwrap(ce))
	assert.True(t, errors.Is(ce, originalErr))
}

func TestCrawlError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "fetch timeout",
			code:     ErrCodeFetchTimeout,
			message:  "fetch timed out",
			expected: "[ERR_101_FETCH_TIMEOUT] fetch timed out",
		},
		{
			name:     "not found",
			code:     ErrCodeNotFound,
			message:  "page not found",
			expected: "[ERR_201_NOT_FOUND] page not found",
		},
		{
			name:     "rate limited",
			code:     ErrCodeRateLimited,
			message:  "429 received",
			expected: "[ERR_301_RATE_LIMITED] 429 received",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestCrawlError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeNotFound, "page A not found", nil)
	err2 := New(ErrCodeNotFound, "page B not found", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestCrawlError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeNotFound, "page not found", nil)
	err2 := New(ErrCodeForbidden, "page forbidden", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestCrawlError_WithDetail_AddsContext(t *testing.T) {
	err := New(ErrCodeNotFound, "page not found", nil)

	err.WithDetail("url", "https://developer.apple.com/missing").WithDetail("depth", "3")

	assert.Equal(t, "https://developer.apple.com/missing", err.Details["url"])
	assert.Equal(t, "3", err.Details["depth"])
}

func TestCrawlError_WithSuggestion(t *testing.T) {
	err := New(ErrCodeNoIndex, "documentation index not found", nil).
		WithSuggestion("run `cupertino index` before searching")

	assert.Equal(t, "run `cupertino index` before searching", err.Suggestion)
}

func TestNew_DerivesCategorySeverityRetryable(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
		wantSeverity Severity
		wantRetry    bool
	}{
		{ErrCodeFetchTimeout, CategoryTransientFetch, SeverityWarning, true},
		{ErrCodeNotFound, CategoryNotFoundForbidden, SeverityError, false},
		{ErrCodeRateLimited, CategoryRateLimited, SeverityWarning, false},
		{ErrCodeBadHTML, CategoryContentParseError, SeverityError, false},
		{ErrCodeSQLiteWrite, CategoryPersistenceError, SeverityFatal, false},
		{ErrCodeSchemaMismatch, CategorySchemaMismatch, SeverityError, false},
		{ErrCodeQueryEmpty, CategoryInvalidQuery, SeverityError, false},
		{ErrCodeNoIndex, CategoryMissingPrereq, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
			assert.Equal(t, tt.wantSeverity, err.Severity)
			assert.Equal(t, tt.wantRetry, err.Retryable)
		})
	}
}

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWrap_PreservesMessageAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrCodeDiskFull, cause)

	require.NotNil(t, err)
	assert.Equal(t, "disk full", err.Message)
	assert.Equal(t, cause, err.Cause)
	assert.True(t, IsFatal(err))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeRenderTimeout, "render timed out", nil)))
	assert.False(t, IsRetryable(New(ErrCodeNotFound, "not found", nil)))
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("plain error")))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeSQLiteWrite, "write failed", nil)))
	assert.False(t, IsFatal(New(ErrCodeNotFound, "not found", nil)))
	assert.False(t, IsFatal(nil))
}

func TestGetCodeAndCategory(t *testing.T) {
	err := New(ErrCodeQueryInvalid, "bad query syntax", nil)

	assert.Equal(t, ErrCodeQueryInvalid, GetCode(err))
	assert.Equal(t, CategoryInvalidQuery, GetCategory(err))

	plain := errors.New("plain")
	assert.Equal(t, "", GetCode(plain))
	assert.Equal(t, Category(""), GetCategory(plain))
}

func TestConstructorHelpers(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, GetCode(NotFoundError("missing", nil)))
	assert.Equal(t, ErrCodeForbidden, GetCode(ForbiddenError("blocked", nil)))
	assert.Equal(t, ErrCodeRateLimited, GetCode(RateLimitedError("throttled", nil)))
	assert.Equal(t, ErrCodeSchemaMismatch, GetCode(SchemaMismatchError("stale schema", nil)))
	assert.Equal(t, ErrCodeInternal, GetCode(InternalError("unexpected", nil)))
}
