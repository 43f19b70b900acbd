// Package api provides HTTP client functionality for talking to the
// GuerrillaMail AJAX endpoint. It handles session bootstrap, browser-like
// request construction, and decoding of the service's JSON responses.
//
// # Session Bootstrap
//
// A [Client] is created with [NewClient] and becomes usable once
// [Client.Bootstrap] has fetched the landing page and extracted the
// api_token embedded in it. The token is sent as "Authorization: ApiToken
// <token>" on every later request, and cookies set by the landing page are
// kept in a jar shared by every call made through the same Client.
//
// # Requests
//
// Every AJAX call carries a fixed header set that mimics the service's own
// web page (pinned Host, Origin and Referer, X-Requested-With, Sec-Fetch-*).
// GET calls drop Content-Type and carry a "_" query parameter holding a
// millisecond timestamp that strictly increases within one Client.
//
// Each method issues exactly one request. Nothing is retried.
//
// # Error Handling
//
// Failures are reported as one of:
//
//   - [*NetworkError]: the request never produced a response.
//   - [*APIError]: the service answered with a non-2xx status.
//   - [*ParseError]: the body did not have the expected shape. Matches
//     [ErrResponseParse].
//   - [*TokenError]: the landing page had no api_token. Matches
//     [ErrTokenParse] and [ErrResponseParse].
//
// # Thread Safety
//
// The [Client] type is safe for concurrent use once Bootstrap has returned.
package api
