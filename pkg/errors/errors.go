package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents response parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeSearch represents a failed catalog search
	ErrorTypeSearch ErrorType = "search"
	// ErrorTypeMalformedOffer represents a catalog item that cannot become an offer
	ErrorTypeMalformedOffer ErrorType = "malformed_offer"
	// ErrorTypeUnknown is reported for errors outside this taxonomy
	ErrorTypeUnknown ErrorType = "unknown"
)

// PipelineError represents an error raised somewhere between the catalog and the channel
type PipelineError struct {
	Type       ErrorType
	Source     string
	Message    string
	Err        error
	RetryAfter time.Duration
	Time       time.Time
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *PipelineError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeRateLimit:
		return e.RetryAfter > 0
	default:
		return false
	}
}

// New creates a new PipelineError
func New(errType ErrorType, source, message string, err error) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *PipelineError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *PipelineError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, retryAfter time.Duration) *PipelineError {
	e := New(ErrorTypeRateLimit, source, fmt.Sprintf("rate limited; retry after %v", retryAfter), nil)
	e.RetryAfter = retryAfter
	return e
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *PipelineError {
	return New(ErrorTypeCache, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *PipelineError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *PipelineError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewSearch creates a new search error for a keyword
func NewSearch(source, keyword string, err error) *PipelineError {
	return New(ErrorTypeSearch, source, fmt.Sprintf("search %q failed", keyword), err)
}

// NewMalformedOffer creates a new malformed offer error
func NewMalformedOffer(source, message string) *PipelineError {
	return New(ErrorTypeMalformedOffer, source, message, nil)
}

// KindOf returns the type of the outermost PipelineError in err's chain.
// A search error wrapping a rate limit reports the rate limit.
func KindOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if !stderrors.As(err, &pe) {
		return ErrorTypeUnknown
	}
	if pe.Type == ErrorTypeSearch && pe.Err != nil {
		if inner := KindOf(pe.Err); inner != ErrorTypeUnknown {
			return inner
		}
	}
	return pe.Type
}

// Is reports whether any error in err's chain is a PipelineError of the given type
func Is(err error, errType ErrorType) bool {
	for err != nil {
		var pe *PipelineError
		if !stderrors.As(err, &pe) {
			return false
		}
		if pe.Type == errType {
			return true
		}
		err = pe.Err
	}
	return false
}

// RetryAfterOf returns the retry hint carried by a rate limit error in err's chain
func RetryAfterOf(err error) time.Duration {
	for err != nil {
		var pe *PipelineError
		if !stderrors.As(err, &pe) {
			return 0
		}
		if pe.Type == ErrorTypeRateLimit {
			return pe.RetryAfter
		}
		err = pe.Err
	}
	return 0
}

// IsRetryable reports whether any PipelineError in err's chain is retryable
func IsRetryable(err error) bool {
	for err != nil {
		var pe *PipelineError
		if !stderrors.As(err, &pe) {
			return false
		}
		if pe.IsRetryable() {
			return true
		}
		err = pe.Err
	}
	return false
}
