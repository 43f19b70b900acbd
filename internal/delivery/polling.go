package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/guerrillamail/client-go/internal/api"
)

// ErrAlreadyStarted is returned by Start when the poller is running.
var ErrAlreadyStarted = errors.New("poller already started")

// Poller lists every registered mailbox at a fixed interval and reports
// messages it has not seen before.
type Poller struct {
	lister    Lister
	interval  time.Duration
	logger    *slog.Logger
	onError   ErrorHandler
	mailboxes map[string]*polledMailbox // keyed by alias
	handler   EventHandler
	cancel    context.CancelFunc
	done      chan struct{}
	mu        sync.RWMutex
	started   bool
}

type polledMailbox struct {
	alias   string
	address string // passed to the lister
	refs    int
	seen    map[string]struct{}
}

// NewPoller creates a poller. It does not start polling until Start.
func NewPoller(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Poller{
		lister:    cfg.Lister,
		interval:  cfg.Interval,
		logger:    cfg.Logger,
		onError:   cfg.OnError,
		mailboxes: make(map[string]*polledMailbox),
	}
}

// Interval returns the time between polls.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start begins polling in a background goroutine. handler is called for
// each new message.
func (p *Poller) Start(ctx context.Context, handler EventHandler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrAlreadyStarted
	}
	p.handler = handler
	p.started = true
	p.done = make(chan struct{})

	ctx, p.cancel = context.WithCancel(ctx)
	go p.pollLoop(ctx, p.done)
	return nil
}

// Stop halts polling and waits for an in-flight poll to finish. After Stop
// returns the handler is not called again. Stop is idempotent.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Add registers a mailbox. Mailboxes are reference counted by alias, so a
// mailbox added twice must be removed twice.
func (p *Poller) Add(address string) {
	alias := api.Alias(address)

	p.mu.Lock()
	defer p.mu.Unlock()
	if mb, ok := p.mailboxes[alias]; ok {
		mb.refs++
		return
	}
	p.mailboxes[alias] = &polledMailbox{
		alias:   alias,
		address: address,
		refs:    1,
		seen:    make(map[string]struct{}),
	}
}

// Remove drops one reference to a mailbox. The mailbox stops being polled,
// and forgets which messages it has seen, when the last reference goes.
func (p *Poller) Remove(address string) {
	alias := api.Alias(address)

	p.mu.Lock()
	defer p.mu.Unlock()
	mb, ok := p.mailboxes[alias]
	if !ok {
		return
	}
	mb.refs--
	if mb.refs <= 0 {
		delete(p.mailboxes, alias)
	}
}

// Aliases returns the aliases currently being polled, sorted.
func (p *Poller) Aliases() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	aliases := make([]string, 0, len(p.mailboxes))
	for alias := range p.mailboxes {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

func (p *Poller) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.pollAll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) pollAll(ctx context.Context) {
	p.mu.RLock()
	mailboxes := make([]*polledMailbox, 0, len(p.mailboxes))
	for _, mb := range p.mailboxes {
		mailboxes = append(mailboxes, mb)
	}
	handler := p.handler
	p.mu.RUnlock()

	for _, mb := range mailboxes {
		if ctx.Err() != nil {
			return
		}
		p.pollMailbox(ctx, mb, handler)
	}
}

// pollMailbox lists one mailbox and reports unseen messages. Only the poll
// loop touches mb.seen.
func (p *Poller) pollMailbox(ctx context.Context, mb *polledMailbox, handler EventHandler) {
	if p.lister == nil {
		return
	}

	messages, err := p.lister.CheckEmail(ctx, mb.address)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.WarnContext(ctx, "poll mailbox failed",
			"alias", mb.alias,
			"err", err,
		)
		if p.onError != nil {
			p.onError(mb.address, err)
		}
		return
	}

	listed := make(map[string]struct{}, len(messages))
	for i := range messages {
		msg := messages[i]
		listed[msg.ID] = struct{}{}
		if _, seen := mb.seen[msg.ID]; seen {
			continue
		}
		mb.seen[msg.ID] = struct{}{}
		if handler != nil && ctx.Err() == nil {
			handler(ctx, mb.alias, &msg)
		}
	}

	// Forget messages the service no longer lists.
	for id := range mb.seen {
		if _, ok := listed[id]; !ok {
			delete(mb.seen, id)
		}
	}
}
