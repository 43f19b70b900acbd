package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/guerrillamail/client-go/internal/api"
)

// Lister lists the messages currently held by a mailbox. *api.Client
// satisfies it.
type Lister interface {
	CheckEmail(ctx context.Context, address string) ([]api.Message, error)
}

// EventHandler is invoked once for every message the poller has not seen
// before. alias identifies the mailbox the message belongs to.
type EventHandler func(ctx context.Context, alias string, msg *api.Message)

// ErrorHandler receives list failures. The poller keeps running after it
// returns.
type ErrorHandler func(address string, err error)

// Config holds configuration for a Poller.
type Config struct {
	// Lister performs the list calls. Required.
	Lister Lister

	// Interval is the fixed time between polls.
	// If zero, defaults to DefaultPollInterval.
	Interval time.Duration

	// Logger receives poll failures at warn level.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// OnError is called for every failed list call. Optional.
	OnError ErrorHandler
}

// DefaultPollInterval is the time between polls when Config.Interval is zero.
const DefaultPollInterval = 5 * time.Second
