package guerrillamail

import (
	"context"
	"fmt"
	"sync"
)

const watchBuffer = 16

// messageQueue collects messages from a subscription without blocking the
// poll goroutine and without dropping any. ready holds at most one pending
// signal; a receiver drains everything queued when it fires.
type messageQueue struct {
	mu    sync.Mutex
	items []*Message
	ready chan struct{}
}

func newMessageQueue() *messageQueue {
	return &messageQueue{ready: make(chan struct{}, 1)}
}

func (q *messageQueue) push(msg *Message) {
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *messageQueue) drain() []*Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// subscribe queues the inbox's new messages until ctx is done or the
// client is closed.
func (i *Inbox) subscribe(ctx context.Context) (*messageQueue, error) {
	q := newMessageQueue()
	unsubscribe, err := i.client.watch(i.emailAddress, q.push)
	if err != nil {
		return nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-i.client.closedCh:
		}
		unsubscribe()
	}()

	return q, nil
}

// Watch returns a channel that receives messages as they arrive. The inbox
// is listed every poll interval (see WithPollInterval) and each message ID
// is delivered once; the first poll delivers messages already present.
//
// The channel is not closed when the context is cancelled; use a select on
// ctx.Done() to detect cancellation. On a closed client the returned channel
// is already closed.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
//	defer cancel()
//
//	ch := inbox.Watch(ctx)
//	for {
//	    select {
//	    case <-ctx.Done():
//	        return
//	    case msg := <-ch:
//	        fmt.Printf("New message: %s\n", msg.Subject)
//	    }
//	}
func (i *Inbox) Watch(ctx context.Context) <-chan *Message {
	q, err := i.subscribe(ctx)
	if err != nil {
		closed := make(chan *Message)
		close(closed)
		return closed
	}

	ch := make(chan *Message, watchBuffer)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-i.client.closedCh:
				return
			case <-q.ready:
			}
			for _, msg := range q.drain() {
				select {
				case ch <- msg:
				case <-ctx.Done():
					return
				case <-i.client.closedCh:
					return
				}
			}
		}
	}()
	return ch
}

// WatchFunc calls fn for each message as it arrives until the context is
// cancelled or the client is closed. It returns nil on cancellation and
// ErrClientClosed when the client is closed.
//
// Example:
//
//	inbox.WatchFunc(ctx, func(msg *guerrillamail.Message) {
//	    fmt.Printf("New message: %s\n", msg.Subject)
//	})
func (i *Inbox) WatchFunc(ctx context.Context, fn func(*Message)) error {
	q, err := i.subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-i.client.closedCh:
			return ErrClientClosed
		case <-q.ready:
			for _, msg := range q.drain() {
				fn(msg)
			}
		}
	}
}

// WaitForMessage waits for a message matching the given criteria. Messages
// already in the inbox are considered first. A failure of that first listing
// is returned directly; later poll failures only go to the poll error
// handler. When the wait times out the context error is returned.
func (i *Inbox) WaitForMessage(ctx context.Context, opts ...WaitOption) (*Message, error) {
	msgs, err := i.WaitForMessageCount(ctx, 1, opts...)
	if err != nil {
		return nil, err
	}
	return msgs[0], nil
}

// WaitForMessageCount waits until at least count distinct matching messages
// have been seen and returns the first count of them.
func (i *Inbox) WaitForMessageCount(ctx context.Context, count int, opts ...WaitOption) ([]*Message, error) {
	if count < 0 {
		return nil, fmt.Errorf("count must be non-negative, got %d", count)
	}
	if count == 0 {
		return []*Message{}, nil
	}

	cfg := &waitConfig{
		timeout: defaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	// Track seen message IDs to avoid duplicates
	seen := make(map[string]struct{})
	var results []*Message

	addIfNew := func(m *Message) {
		if _, ok := seen[m.ID]; ok {
			return
		}
		if cfg.Matches(m) {
			seen[m.ID] = struct{}{}
			results = append(results, m)
		}
	}

	// 1. Subscribe before listing so nothing arrives unseen in between
	q, err := i.subscribe(ctx)
	if err != nil {
		return nil, err
	}

	// 2. Check existing messages (handles already-arrived case)
	existing, err := i.GetMessages(ctx)
	if err != nil {
		return nil, err
	}
	for idx := range existing {
		addIfNew(&existing[idx])
		if len(results) >= count {
			return results[:count], nil
		}
	}

	// 3. Watch for new messages
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-i.client.closedCh:
			return nil, ErrClientClosed
		case <-q.ready:
			for _, msg := range q.drain() {
				addIfNew(msg)
				if len(results) >= count {
					return results[:count], nil
				}
			}
		}
	}
}
