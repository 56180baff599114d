package types

import (
	"errors"
	"strings"
)

// ErrorCode classifies hydration fetch/write failures.
type ErrorCode string

const (
	ErrCodeRateLimited  ErrorCode = "RATE_LIMITED"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeParseError   ErrorCode = "PARSE_ERROR"
	ErrCodeUnknown      ErrorCode = "UNKNOWN"

	// ErrCodeRetryMissing marks a fetch that resolved nothing but still has
	// attempt budget left; the row is scheduled for retry rather than being
	// declared missing.
	ErrCodeRetryMissing ErrorCode = "RETRY_MISSING"

	// ErrCodeConcurrentUpdate marks a row lost to another writer between the
	// candidate read and the conditional write. Not a failure.
	ErrCodeConcurrentUpdate ErrorCode = "CONCURRENT_UPDATE"
)

// Retryable reports whether a failure with this code may be retried later.
// NOT_FOUND and UNAUTHORIZED are terminal.
func (c ErrorCode) Retryable() bool {
	switch c {
	case ErrCodeNotFound, ErrCodeUnauthorized:
		return false
	default:
		return true
	}
}

// ClassifyFetchError derives an ErrorCode from an error raised by the
// platform fetch collaborator. Classification is by message and status-text
// inspection since collaborators surface HTTP-style errors as opaque values.
func ClassifyFetchError(err error) ErrorCode {
	if err == nil {
		return ErrCodeUnknown
	}

	var coded interface{ HydrationErrorCode() ErrorCode }
	if errors.As(err, &coded) {
		return coded.HydrationErrorCode()
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") || strings.Contains(msg, "too many requests"):
		return ErrCodeRateLimited
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return ErrCodeTimeout
	case strings.Contains(msg, "not found") || strings.Contains(msg, "404") || strings.Contains(msg, "deleted"):
		return ErrCodeNotFound
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "forbidden") || strings.Contains(msg, "protected"):
		return ErrCodeUnauthorized
	case strings.Contains(msg, "parse") || strings.Contains(msg, "unmarshal") || strings.Contains(msg, "invalid json"):
		return ErrCodeParseError
	default:
		return ErrCodeUnknown
	}
}
