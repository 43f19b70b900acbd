package api

import (
	"errors"
	"fmt"
)

// Common API errors that can be checked with errors.Is.
var (
	// ErrResponseParse indicates a response body did not have the expected shape.
	ErrResponseParse = errors.New("unexpected response shape")
	// ErrTokenParse indicates the landing page did not contain an api_token.
	ErrTokenParse = errors.New("api token not found")
	// ErrInvalidProxy indicates the configured proxy URL could not be parsed.
	ErrInvalidProxy = errors.New("invalid proxy URL")
)

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

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err error
	URL string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError reports a response that decoded badly or lacked a field.
type ParseError struct {
	// Op is the AJAX function whose response failed to parse, e.g. "fetch_email".
	Op string
	// Field is the missing or mistyped field, empty when the body as a whole
	// was unusable.
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

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *ParseError) Is(target error) bool {
	return target == ErrResponseParse
}

// TokenError reports a landing page without a recognizable api_token.
type TokenError struct {
	URL string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("api token not found in %s", e.URL)
}

// Is implements errors.Is for sentinel error matching. A token failure is a
// specialized response-shape failure, so both sentinels match.
func (e *TokenError) Is(target error) bool {
	return target == ErrTokenParse || target == ErrResponseParse
}
