package guerrillamail

import (
	"log/slog"
	"regexp"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/guerrillamail/client-go/internal/api"
	"github.com/guerrillamail/client-go/internal/delivery"
)

const (
	defaultWaitTimeout  = 60 * time.Second
	defaultPollInterval = delivery.DefaultPollInterval
)

// Default endpoints and identity. They can be overridden with WithBaseURL,
// WithAjaxURL and WithUserAgent.
const (
	DefaultBaseURL   = api.DefaultBaseURL
	DefaultAjaxURL   = api.DefaultAjaxURL
	DefaultUserAgent = api.DefaultUserAgent
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL            string
	ajaxURL            string
	userAgent          string
	proxy              string
	acceptInvalidCerts bool
	timeout            time.Duration

	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	pollInterval time.Duration
	onPollError  func(error)
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		baseURL:            DefaultBaseURL,
		ajaxURL:            DefaultAjaxURL,
		userAgent:          DefaultUserAgent,
		acceptInvalidCerts: true,
		pollInterval:       defaultPollInterval,
	}
}

// waitConfig holds configuration for waiting on messages.
type waitConfig struct {
	subject      string
	subjectRegex *regexp.Regexp
	from         string
	fromRegex    *regexp.Regexp
	predicate    func(*Message) bool
	timeout      time.Duration
}

// Option configures the client.
type Option func(*clientConfig)

// WaitOption configures message waiting.
type WaitOption func(*waitConfig)

// WithProxy routes every request, including the bootstrap, through the
// given proxy URL, e.g. "http://127.0.0.1:8080". An unparsable URL makes New
// fail with ErrInvalidProxy.
func WithProxy(proxyURL string) Option {
	return func(c *clientConfig) {
		c.proxy = proxyURL
	}
}

// WithAcceptInvalidCerts controls TLS certificate verification.
// Default: true (certificates are not verified), which allows intercepting
// proxies.
func WithAcceptInvalidCerts(accept bool) Option {
	return func(c *clientConfig) {
		c.acceptInvalidCerts = accept
	}
}

// WithUserAgent sets the User-Agent sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithAjaxURL sets the AJAX endpoint.
func WithAjaxURL(url string) Option {
	return func(c *clientConfig) {
		c.ajaxURL = url
	}
}

// WithBaseURL sets the landing page fetched during bootstrap.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithTimeout bounds each HTTP exchange. By default only the caller's
// context limits a request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *clientConfig) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider.
// Default: the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *clientConfig) {
		c.meterProvider = mp
	}
}

// WithPollInterval sets the fixed interval at which watched inboxes are
// listed.
// Default: 5 seconds
func WithPollInterval(interval time.Duration) Option {
	return func(c *clientConfig) {
		c.pollInterval = interval
	}
}

// WithPollErrorHandler registers a callback for list failures hit while
// polling watched inboxes. Polling continues after a failure.
func WithPollErrorHandler(fn func(error)) Option {
	return func(c *clientConfig) {
		c.onPollError = fn
	}
}

// WithSubject filters messages by exact subject match.
func WithSubject(subject string) WaitOption {
	return func(c *waitConfig) {
		c.subject = subject
	}
}

// WithSubjectRegex filters messages by subject regex.
func WithSubjectRegex(pattern *regexp.Regexp) WaitOption {
	return func(c *waitConfig) {
		c.subjectRegex = pattern
	}
}

// WithFrom filters messages by exact sender match.
func WithFrom(from string) WaitOption {
	return func(c *waitConfig) {
		c.from = from
	}
}

// WithFromRegex filters messages by sender regex.
func WithFromRegex(pattern *regexp.Regexp) WaitOption {
	return func(c *waitConfig) {
		c.fromRegex = pattern
	}
}

// WithPredicate filters messages by custom predicate.
func WithPredicate(fn func(*Message) bool) WaitOption {
	return func(c *waitConfig) {
		c.predicate = fn
	}
}

// WithWaitTimeout sets the timeout for waiting.
// Default: 60 seconds
func WithWaitTimeout(timeout time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = timeout
	}
}

// Matches checks if a message matches the wait criteria.
func (w *waitConfig) Matches(m *Message) bool {
	if w.subject != "" && m.Subject != w.subject {
		return false
	}
	if w.subjectRegex != nil && !w.subjectRegex.MatchString(m.Subject) {
		return false
	}
	if w.from != "" && m.From != w.from {
		return false
	}
	if w.fromRegex != nil && !w.fromRegex.MatchString(m.From) {
		return false
	}
	if w.predicate != nil && !w.predicate(m) {
		return false
	}
	return true
}
