package guerrillamail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/guerrillamail/client-go/internal/api"
	"github.com/guerrillamail/client-go/internal/delivery"
)

// Client is a GuerrillaMail session: a bootstrap token plus the cookies the
// landing page set. Every method is safe for concurrent use.
type Client struct {
	apiClient *api.Client
	poller    *delivery.Poller
	logger    *slog.Logger

	mu       sync.RWMutex
	closed   bool
	closedCh chan struct{}

	// Subscription manager for message notifications
	subs *subscriptionManager
}

// buildAPIClient creates and configures an API client from the given config.
func buildAPIClient(cfg *clientConfig) (*api.Client, error) {
	return api.NewClient(api.Config{
		BaseURL:            cfg.baseURL,
		AjaxURL:            cfg.ajaxURL,
		UserAgent:          cfg.userAgent,
		Proxy:              cfg.proxy,
		AcceptInvalidCerts: cfg.acceptInvalidCerts,
		Timeout:            cfg.timeout,
		Logger:             cfg.logger,
		TracerProvider:     cfg.tracerProvider,
		MeterProvider:      cfg.meterProvider,
	})
}

// createPoller creates the poller that backs Watch and WaitForMessage.
func createPoller(cfg *clientConfig, apiClient *api.Client) *delivery.Poller {
	pollerCfg := delivery.Config{
		Lister:   apiClient,
		Interval: cfg.pollInterval,
		Logger:   cfg.logger,
	}
	if cfg.onPollError != nil {
		pollerCfg.OnError = func(_ string, err error) {
			cfg.onPollError(wrapError(err))
		}
	}
	return delivery.NewPoller(pollerCfg)
}

// New opens a GuerrillaMail session. It fetches the landing page once,
// keeps the cookies it sets and extracts the api_token every later call is
// authorized with.
//
// New fails with ErrInvalidProxy before any network I/O when the proxy URL
// is unusable, with a *NetworkError when the page cannot be fetched, with an
// *APIError on a non-2xx status and with a *TokenError (matching
// ErrTokenParse) when the page has no token.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	apiClient, err := buildAPIClient(cfg)
	if err != nil {
		return nil, err
	}

	if err := apiClient.Bootstrap(ctx); err != nil {
		return nil, wrapError(err)
	}

	c := &Client{
		apiClient: apiClient,
		poller:    createPoller(cfg, apiClient),
		logger:    cfg.logger,
		closedCh:  make(chan struct{}),
		subs:      newSubscriptionManager(),
	}

	if err := c.poller.Start(context.Background(), c.handleMessage); err != nil {
		return nil, fmt.Errorf("start poller: %w", err) //coverage:ignore
	}

	return c, nil
}

// CreateEmail asks the service for the given alias and returns the address
// it actually assigned. The service may normalize or replace the alias, so
// always use the returned address.
func (c *Client) CreateEmail(ctx context.Context, alias string) (string, error) {
	address, err := c.apiClient.SetEmailUser(ctx, alias)
	if err != nil {
		return "", wrapError(err)
	}
	return address, nil
}

// GetMessages lists the messages in an inbox. Only the alias of address is
// sent. Listing entries that cannot be decoded are skipped.
func (c *Client) GetMessages(ctx context.Context, address string) ([]Message, error) {
	messages, err := c.apiClient.CheckEmail(ctx, address)
	if err != nil {
		return nil, wrapError(err)
	}
	return messages, nil
}

// FetchEmail returns the full content of one message.
func (c *Client) FetchEmail(ctx context.Context, address, id string) (*EmailDetails, error) {
	details, err := c.apiClient.FetchEmail(ctx, address, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return details, nil
}

// DeleteEmail asks the service to forget an address. It reports whether the
// service answered with a 2xx status; a rejection is not an error. Only a
// transport failure returns a non-nil error.
func (c *Client) DeleteEmail(ctx context.Context, address string) (bool, error) {
	ok, err := c.apiClient.ForgetMe(ctx, address)
	if err != nil {
		return false, wrapError(err)
	}
	return ok, nil
}

// CreateInbox creates an address like CreateEmail and returns it as an Inbox.
func (c *Client) CreateInbox(ctx context.Context, alias string) (*Inbox, error) {
	address, err := c.CreateEmail(ctx, alias)
	if err != nil {
		return nil, err
	}
	return c.Inbox(address), nil
}

// Inbox returns a handle for an existing address. No request is made.
func (c *Client) Inbox(address string) *Inbox {
	return &Inbox{
		emailAddress: address,
		client:       c,
	}
}

// MonitorInboxes returns a monitor that reports new messages arriving in
// any of the given inboxes. Monitoring starts with the first OnMessage call.
func (c *Client) MonitorInboxes(inboxes ...*Inbox) *InboxMonitor {
	return newInboxMonitor(c, inboxes)
}

// Proxy returns the configured proxy URL, or "" when none was set.
func (c *Client) Proxy() string {
	return c.apiClient.Proxy()
}

// UserAgent returns the User-Agent sent on every request.
func (c *Client) UserAgent() string {
	return c.apiClient.UserAgent()
}

// checkClosed returns ErrClientClosed if the client has been closed.
func (c *Client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// watch registers callback for new messages of address and starts polling
// it. The returned function undoes both and is safe to call more than once.
func (c *Client) watch(address string, callback func(*Message)) (func(), error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClientClosed
	}

	unsubscribe := c.subs.subscribe(Alias(address), callback)
	c.poller.Add(address)

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			c.poller.Remove(address)
		})
	}, nil
}

// handleMessage receives new messages from the poller.
func (c *Client) handleMessage(ctx context.Context, alias string, msg *api.Message) {
	c.logger.DebugContext(ctx, "new message",
		"alias", alias,
		"mail_id", msg.ID,
	)
	c.subs.notify(alias, msg)
}

// Close stops polling and releases watchers. Watch and WaitForMessage fail
// with ErrClientClosed afterwards; the request methods keep working since
// the session itself holds nothing that needs releasing.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closedCh)
	c.mu.Unlock()

	if err := c.poller.Stop(); err != nil {
		return err //coverage:ignore
	}

	c.subs.clear()
	return nil
}
