package casestack

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors raised locally, before any network call is made.
var (
	// ErrInvalidArgument indicates a nil or empty identifier or credential.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFetched indicates Save was called on a record that was not
	// obtained from the API and therefore has no transport to save through.
	ErrNotFetched = fmt.Errorf("%w: record was not fetched from the api", ErrInvalidArgument)
)

// ErrEmptyResponse is the cause of an HTTPError for a 200 response that
// carried no record where one was expected.
var ErrEmptyResponse = errors.New("response body is empty")

// HTTPError is returned whenever an exchange with the API completes with a
// status other than 200 or fails at the transport level.
type HTTPError struct {
	// StatusCode is the HTTP status reported by the transport. It is zero
	// when no response was received.
	StatusCode int
	Resource   string
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("casestack: %s (status %d): %v", e.Message, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("casestack: %s (status %d)", e.Message, e.StatusCode)
}

// Unwrap returns the underlying transport error, if any.
func (e *HTTPError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *HTTPError with the same status code.
// A target with a zero status code matches any HTTPError.
func (e *HTTPError) Is(target error) bool {
	t, ok := target.(*HTTPError)
	if !ok {
		return false
	}
	return t.StatusCode == 0 || t.StatusCode == e.StatusCode
}

func newHTTPError(statusCode int, resource string, cause error) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Resource:   resource,
		Message:    "error retrieving " + resource,
		Cause:      cause,
	}
}

// StatusCode extracts the HTTP status from err. ok is false when err is not
// an *HTTPError.
func StatusCode(err error) (code int, ok bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}

// IsServerError returns true if err is an *HTTPError carrying a 5xx status.
func IsServerError(err error) bool {
	code, ok := StatusCode(err)
	return ok && code >= http.StatusInternalServerError && code <= 599
}

func invalidArgument(name string) error {
	return fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, name)
}
