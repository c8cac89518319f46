package sciencebase

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors
var (
	// ErrAuth is the parent of every login or session failure
	ErrAuth = errors.New("authentication error")
	// ErrLoginFailed indicates the identity provider did not issue a session
	ErrLoginFailed = fmt.Errorf("%w: login failed", ErrAuth)
	// ErrTooManyAttempts is returned by LoginInteractive once every prompt
	// has been used up. Callers should wait before trying again.
	ErrTooManyAttempts = fmt.Errorf("%w: too many invalid password attempts, you may need to wait 15 minutes before trying again", ErrAuth)
	// ErrNotLoggedIn is returned by write operations without an active session
	ErrNotLoggedIn = fmt.Errorf("%w: not logged in", ErrAuth)

	// ErrNotFound indicates a 404 (missing, or not visible to this user)
	ErrNotFound = errors.New("resource not found, or user does not have access")
	// ErrUnauthorized indicates a 401
	ErrUnauthorized = errors.New("unauthorized access")
	// ErrRateLimited indicates a 429 from the ScienceBase rate limiter
	ErrRateLimited = errors.New("too many requests")
	// ErrServiceUnavailable indicates a 503, usually from the WAF
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrHTTP covers every other non-2xx status
	ErrHTTP = errors.New("other HTTP error")

	// ErrPrecondition indicates invalid input detected before any request
	ErrPrecondition = errors.New("precondition failed")
	// ErrUnrecognizedSource indicates an upload source that cannot be fetched
	ErrUnrecognizedSource = errors.New("unrecognized URL format")
	// ErrParse indicates a response body that is not the expected JSON
	ErrParse = errors.New("error parsing JSON response")
	// ErrFileNotFound indicates a missing or unreadable local file
	ErrFileNotFound = errors.New("file not found")
	// ErrUploadFailed indicates the upload POST itself did not complete
	ErrUploadFailed = errors.New("upload failed")
	// ErrPaginationLoop indicates a search link that points back to a page
	// already visited
	ErrPaginationLoop = errors.New("search link revisits an earlier page")
)

// Outcome is the classification of an HTTP status code
type Outcome int

const (
	// OutcomeSuccess is any 2xx status
	OutcomeSuccess Outcome = iota
	// OutcomeNotFound is 404
	OutcomeNotFound
	// OutcomeUnauthorized is 401
	OutcomeUnauthorized
	// OutcomeRateLimited is 429
	OutcomeRateLimited
	// OutcomeServiceUnavailable is 503
	OutcomeServiceUnavailable
	// OutcomeOther is any other non-2xx status
	OutcomeOther
)

// String returns the string representation of an Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeNotFound:
		return "NOT_FOUND"
	case OutcomeUnauthorized:
		return "UNAUTHORIZED"
	case OutcomeRateLimited:
		return "RATE_LIMITED"
	case OutcomeServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "OTHER"
	}
}

// Retryable reports whether a call with this outcome may be retried
func (o Outcome) Retryable() bool {
	return o == OutcomeRateLimited || o == OutcomeServiceUnavailable
}

// Classify maps an HTTP status code to an Outcome
func Classify(statusCode int) Outcome {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return OutcomeSuccess
	case statusCode == http.StatusNotFound:
		return OutcomeNotFound
	case statusCode == http.StatusUnauthorized:
		return OutcomeUnauthorized
	case statusCode == http.StatusTooManyRequests:
		return OutcomeRateLimited
	case statusCode == http.StatusServiceUnavailable:
		return OutcomeServiceUnavailable
	default:
		return OutcomeOther
	}
}

// APIError represents a non-2xx response from ScienceBase. It keeps the raw
// status, headers and body so callers can make their own decisions.
type APIError struct {
	StatusCode int
	Outcome    Outcome
	URL        string
	Header     http.Header
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	switch e.Outcome {
	case OutcomeOther:
		return fmt.Sprintf("%s: %d: %s", ErrHTTP, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s (status %d)", e.sentinel(), e.StatusCode)
	}
}

func (e *APIError) sentinel() error {
	switch e.Outcome {
	case OutcomeNotFound:
		return ErrNotFound
	case OutcomeUnauthorized:
		return ErrUnauthorized
	case OutcomeRateLimited:
		return ErrRateLimited
	case OutcomeServiceUnavailable:
		return ErrServiceUnavailable
	default:
		return ErrHTTP
	}
}

// Is lets errors.Is match an APIError against the package sentinels
func (e *APIError) Is(target error) bool {
	return target == e.sentinel()
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.Outcome == OutcomeNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.Outcome == OutcomeUnauthorized
}

// Retryable reports whether the request may succeed if tried again later
func (e *APIError) Retryable() bool {
	return e.Outcome.Retryable()
}

// ChunkError reports a failed batch inside DeleteItems. Chunks before Index
// were already committed on the server and are not rolled back.
type ChunkError struct {
	Index     int
	Start     int
	End       int
	Committed int
	Err       error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("delete chunk %d (ids %d-%d) failed, %d earlier ids may already be deleted: %v",
		e.Index, e.Start, e.End-1, e.Committed, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is an APIError worth retrying
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}
