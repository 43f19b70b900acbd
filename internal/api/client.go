package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/publicsuffix"
)

// Default endpoints and identity used when Config leaves them empty.
const (
	DefaultBaseURL   = "https://www.guerrillamail.com"
	DefaultAjaxURL   = "https://www.guerrillamail.com/ajax.php"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:131.0) Gecko/20100101 Firefox/131.0"
)

const instrumentationName = "github.com/guerrillamail/client-go/internal/api"

// Config holds configuration for creating a new Client.
type Config struct {
	// BaseURL is the landing page scraped for the api_token.
	BaseURL string
	// AjaxURL is the endpoint every post-bootstrap call is sent to.
	AjaxURL string
	// UserAgent is sent on every request, including bootstrap.
	UserAgent string
	// Proxy is an optional proxy URL such as "http://127.0.0.1:8080".
	Proxy string
	// AcceptInvalidCerts disables TLS certificate verification.
	AcceptInvalidCerts bool
	// Timeout bounds each HTTP exchange. Zero leaves it to the caller's context.
	Timeout time.Duration

	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client is the GuerrillaMail session transport.
type Client struct {
	http      *resty.Client
	baseURL   string
	ajaxURL   string
	userAgent string
	proxy     string
	token     string
	clock     *clock
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewClient creates a new API client. It performs no network I/O; call
// Bootstrap before issuing AJAX calls.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AjaxURL == "" {
		cfg.AjaxURL = DefaultAjaxURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := parseProxy(cfg.Proxy)
		if err != nil || proxyURL.Scheme == "" || proxyURL.Host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, cfg.Proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	// The bypass round tripper installs its own TLS profile on the transport,
	// so certificate leniency has to be applied after wrapping.
	roundTripper := cloudflarebp.AddCloudFlareByPass(transport)
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	}
	transport.TLSClientConfig.InsecureSkipVerify = cfg.AcceptInvalidCerts

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	httpClient := resty.NewWithClient(&http.Client{Transport: roundTripper})
	httpClient.SetCookieJar(jar)
	httpClient.SetLogger(restyLogger{logger: cfg.Logger})
	httpClient.SetHeader("User-Agent", cfg.UserAgent)
	httpClient.SetPreRequestHook(pinHost)
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	tracer := cfg.TracerProvider.Tracer(instrumentationName)
	requests, err := cfg.MeterProvider.Meter(instrumentationName).Int64Counter(
		"guerrillamail.requests",
		metric.WithDescription("HTTP requests sent to GuerrillaMail"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}
	instrumentResty(httpClient, tracer, requests, cfg.Logger)

	return &Client{
		http:      httpClient,
		baseURL:   cfg.BaseURL,
		ajaxURL:   cfg.AjaxURL,
		userAgent: cfg.UserAgent,
		proxy:     cfg.Proxy,
		clock:     newClock(time.Now),
		logger:    cfg.Logger,
		tracer:    tracer,
	}, nil
}

// parseProxy parses a proxy URL, assuming http:// when no scheme is given.
func parseProxy(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	return url.Parse(raw)
}

// Bootstrap fetches the landing page and stores the api_token found in it.
// Cookies set by the page are kept for later calls. It must be called once,
// before any other method, and not concurrently with them.
func (c *Client) Bootstrap(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "Bootstrap", trace.WithAttributes(
		attribute.String("url.full", c.baseURL),
	))
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.baseURL)
	if err != nil {
		return fail(span, &NetworkError{Err: err, URL: c.baseURL})
	}
	if !res.IsSuccess() {
		return fail(span, &APIError{StatusCode: res.StatusCode(), Status: res.Status(), URL: c.baseURL})
	}

	token, ok := ExtractToken(res.Body())
	if !ok {
		return fail(span, &TokenError{URL: c.baseURL})
	}
	c.token = token
	c.logger.DebugContext(ctx, "guerrillamail session bootstrapped", "url", c.baseURL)
	return nil
}

// Token returns the api_token obtained by Bootstrap.
func (c *Client) Token() string {
	return c.token
}

// Proxy returns the configured proxy URL, or "" when none was set.
func (c *Client) Proxy() string {
	return c.proxy
}

// UserAgent returns the User-Agent sent on every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// AjaxURL returns the AJAX endpoint.
func (c *Client) AjaxURL() string {
	return c.ajaxURL
}

// pinHost copies a Host header onto the wire request; net/http otherwise
// ignores it and uses the URL host.
func pinHost(_ *resty.Client, req *http.Request) error {
	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
	}
	return nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// restyLogger routes resty's own diagnostics into slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
