package api

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Values the service's own web page sends. The endpoint rejects requests
// that do not look same-origin.
const (
	pinnedHost    = "www.guerrillamail.com"
	pinnedOrigin  = "https://www.guerrillamail.com"
	pinnedReferer = "https://www.guerrillamail.com/"
	site          = "guerrillamail.com"

	acceptJSON     = "application/json, text/javascript, */*; q=0.01"
	acceptLanguage = "en-US,en;q=0.5"
	formURLEncoded = "application/x-www-form-urlencoded; charset=UTF-8"
)

// AJAX function names passed as the "f" query parameter.
const (
	FuncSetEmailUser = "set_email_user"
	FuncCheckEmail   = "check_email"
	FuncFetchEmail   = "fetch_email"
	FuncForgetMe     = "forget_me"
)

// headers returns the browser-like header set for an AJAX call. GET
// requests carry no body, so they omit Content-Type.
func (c *Client) headers(method string) map[string]string {
	h := map[string]string{
		"Host":             pinnedHost,
		"User-Agent":       c.userAgent,
		"Accept":           acceptJSON,
		"Accept-Language":  acceptLanguage,
		"Content-Type":     formURLEncoded,
		"Authorization":    "ApiToken " + c.token,
		"X-Requested-With": "XMLHttpRequest",
		"Origin":           pinnedOrigin,
		"Referer":          pinnedReferer,
		"Sec-Fetch-Dest":   "empty",
		"Sec-Fetch-Mode":   "cors",
		"Sec-Fetch-Site":   "same-origin",
		"Priority":         "u=0",
	}
	if method == resty.MethodGet {
		delete(h, "Content-Type")
	}
	return h
}

func (c *Client) post(ctx context.Context, function string, form url.Values) (*resty.Response, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.headers(resty.MethodPost)).
		SetQueryParam("f", function).
		SetBody(form.Encode()).
		Post(c.ajaxURL)
	if err != nil {
		return nil, &NetworkError{Err: err, URL: c.ajaxURL}
	}
	return res, nil
}

// get issues a GET for function with the alias and a fresh cache-busting
// timestamp, and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, function, alias string, extra url.Values) ([]byte, error) {
	query := url.Values{}
	for k, v := range extra {
		query[k] = v
	}
	query.Set("f", function)
	query.Set("site", site)
	query.Set("in", alias)
	query.Set("_", c.clock.next())

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.headers(resty.MethodGet)).
		SetQueryParamsFromValues(query).
		Get(c.ajaxURL)
	if err != nil {
		return nil, &NetworkError{Err: err, URL: c.ajaxURL}
	}
	if !res.IsSuccess() {
		return nil, &APIError{StatusCode: res.StatusCode(), Status: res.Status(), URL: c.ajaxURL}
	}
	return res.Body(), nil
}

// SetEmailUser asks the service to assign the given alias and returns the
// address it actually assigned.
func (c *Client) SetEmailUser(ctx context.Context, alias string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "SetEmailUser", trace.WithAttributes(
		attribute.String("guerrillamail.alias", alias),
	))
	defer span.End()

	res, err := c.post(ctx, FuncSetEmailUser, url.Values{
		"email_user": {alias},
		"lang":       {"en"},
		"site":       {site},
		"in":         {" Set cancel"},
	})
	if err != nil {
		return "", fail(span, err)
	}
	if !res.IsSuccess() {
		return "", fail(span, &APIError{StatusCode: res.StatusCode(), Status: res.Status(), URL: c.ajaxURL})
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return "", fail(span, newParseError(FuncSetEmailUser, err))
	}
	raw, ok := body["email_addr"]
	if !ok {
		return "", fail(span, &ParseError{Op: FuncSetEmailUser, Field: "email_addr"})
	}
	var address string
	if err := json.Unmarshal(raw, &address); err != nil {
		return "", fail(span, &ParseError{Op: FuncSetEmailUser, Field: "email_addr", Err: err})
	}
	return address, nil
}

// CheckEmail lists the messages of an address. Entries that do not decode
// are dropped; a missing or non-array "list" yields no messages.
func (c *Client) CheckEmail(ctx context.Context, address string) ([]Message, error) {
	alias := Alias(address)
	ctx, span := c.tracer.Start(ctx, "CheckEmail", trace.WithAttributes(
		attribute.String("guerrillamail.alias", alias),
	))
	defer span.End()

	body, err := c.get(ctx, FuncCheckEmail, alias, url.Values{"seq": {"1"}})
	if err != nil {
		return nil, fail(span, err)
	}

	var resp struct {
		List json.RawMessage `json:"list"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fail(span, newParseError(FuncCheckEmail, err))
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(resp.List, &entries); err != nil {
		entries = nil
	}

	messages := make([]Message, 0, len(entries))
	for i, entry := range entries {
		var m Message
		if err := json.Unmarshal(entry, &m); err != nil {
			c.logger.DebugContext(ctx, "dropping malformed list entry",
				"alias", alias,
				"index", i,
				"err", err,
			)
			continue
		}
		messages = append(messages, m)
	}
	span.SetAttributes(
		attribute.Int("guerrillamail.messages", len(messages)),
		attribute.Int("guerrillamail.dropped", len(entries)-len(messages)),
	)
	return messages, nil
}

// FetchEmail returns the full content of one message. Unlike CheckEmail,
// any decode failure fails the call.
func (c *Client) FetchEmail(ctx context.Context, address, id string) (*EmailDetails, error) {
	alias := Alias(address)
	ctx, span := c.tracer.Start(ctx, "FetchEmail", trace.WithAttributes(
		attribute.String("guerrillamail.alias", alias),
		attribute.String("guerrillamail.mail_id", id),
	))
	defer span.End()

	body, err := c.get(ctx, FuncFetchEmail, alias, url.Values{"email_id": {id}})
	if err != nil {
		return nil, fail(span, err)
	}

	var details EmailDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fail(span, newParseError(FuncFetchEmail, err))
	}
	return &details, nil
}

// ForgetMe asks the service to forget an address. The result reflects the
// HTTP status only; the body is not read.
func (c *Client) ForgetMe(ctx context.Context, address string) (bool, error) {
	alias := Alias(address)
	ctx, span := c.tracer.Start(ctx, "ForgetMe", trace.WithAttributes(
		attribute.String("guerrillamail.alias", alias),
	))
	defer span.End()

	res, err := c.post(ctx, FuncForgetMe, url.Values{
		"site": {site},
		"in":   {alias},
	})
	if err != nil {
		return false, fail(span, err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode()))
	return res.IsSuccess(), nil
}
