package guerrillamail

import (
	"errors"
	"fmt"

	"github.com/guerrillamail/client-go/internal/api"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrTokenParse is returned when the landing page has no api_token.
	ErrTokenParse = api.ErrTokenParse

	// ErrResponseParse is returned when a response body does not have the
	// expected shape. Token failures match it too.
	ErrResponseParse = api.ErrResponseParse

	// ErrInvalidProxy is returned by New when the proxy URL cannot be used.
	ErrInvalidProxy = api.ErrInvalidProxy

	// ErrClientClosed is returned when watching or waiting on a closed client.
	ErrClientClosed = errors.New("client has been closed")
)

// GuerrillaMailError is implemented by all SDK errors.
type GuerrillaMailError interface {
	error
	GuerrillaMailError() // marker method
}

// APIError represents a non-2xx HTTP response from GuerrillaMail.
type APIError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *APIError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("API error %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// GuerrillaMailError implements the GuerrillaMailError interface.
func (e *APIError) GuerrillaMailError() {}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err error
	URL string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// GuerrillaMailError implements the GuerrillaMailError interface.
func (e *NetworkError) GuerrillaMailError() {}

// ParseError represents a response that did not decode into the expected
// shape.
type ParseError struct {
	// Op is the AJAX function whose response failed, e.g. "fetch_email".
	Op string
	// Field is the missing or mistyped field. Empty when the body as a
	// whole was unusable.
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("parse %s response: field %q: %v", e.Op, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("parse %s response: missing field %q", e.Op, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("parse %s response: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("parse %s response", e.Op)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *ParseError) Is(target error) bool {
	return target == ErrResponseParse
}

// GuerrillaMailError implements the GuerrillaMailError interface.
func (e *ParseError) GuerrillaMailError() {}

// TokenError represents a landing page without an api_token.
type TokenError struct {
	URL string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("api token not found in %s", e.URL)
}

// Is implements errors.Is for sentinel error matching.
func (e *TokenError) Is(target error) bool {
	return target == ErrTokenParse || target == ErrResponseParse
}

// GuerrillaMailError implements the GuerrillaMailError interface.
func (e *TokenError) GuerrillaMailError() {}

// wrapError converts internal API errors to public errors.
// This ensures that errors.As() works with the public error types.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Status:     apiErr.Status,
			URL:        apiErr.URL,
		}
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return &NetworkError{
			Err: netErr.Err,
			URL: netErr.URL,
		}
	}

	var tokenErr *api.TokenError
	if errors.As(err, &tokenErr) {
		return &TokenError{URL: tokenErr.URL}
	}

	var parseErr *api.ParseError
	if errors.As(err, &parseErr) {
		return &ParseError{
			Op:    parseErr.Op,
			Field: parseErr.Field,
			Err:   parseErr.Err,
		}
	}

	return err
}
