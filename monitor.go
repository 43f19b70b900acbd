package guerrillamail

import (
	"sync"
)

// Subscription represents an active subscription that can be unsubscribed.
type Subscription interface {
	// Unsubscribe stops the subscription and releases resources.
	Unsubscribe()
}

// MessageCallback is called when a new message arrives.
type MessageCallback func(inbox *Inbox, msg *Message)

// InboxMonitor monitors multiple inboxes for new messages.
// It provides an event-emitter like pattern for receiving message
// notifications. All inboxes share the client's poller.
type InboxMonitor struct {
	client        *Client
	inboxes       []*Inbox
	callbacks     map[uint64]MessageCallback
	nextID        uint64
	mu            sync.RWMutex
	started       bool
	unsubscribers []func()
}

// callbackSubscription implements the Subscription interface.
type callbackSubscription struct {
	once   sync.Once
	cancel func()
}

func (s *callbackSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

func newInboxMonitor(client *Client, inboxes []*Inbox) *InboxMonitor {
	return &InboxMonitor{
		client:    client,
		inboxes:   inboxes,
		callbacks: make(map[uint64]MessageCallback),
	}
}

// OnMessage registers a callback to be called when a new message arrives in
// any monitored inbox. The first call starts polling the inboxes.
// Callbacks run on their own goroutine, so they may block.
// Returns a Subscription that can be used to unsubscribe this specific callback.
func (m *InboxMonitor) OnMessage(callback MessageCallback) Subscription {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.callbacks[id] = callback
	m.mu.Unlock()

	m.startMonitoring()

	return &callbackSubscription{
		cancel: func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.callbacks, id)
		},
	}
}

// Unsubscribe stops monitoring all inboxes and releases all resources.
func (m *InboxMonitor) Unsubscribe() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, unsub := range m.unsubscribers {
		unsub()
	}

	m.callbacks = make(map[uint64]MessageCallback)
	m.unsubscribers = nil
	m.started = false
}

// startMonitoring begins watching every inbox if not already started. On a
// closed client nothing is watched.
func (m *InboxMonitor) startMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	for _, inbox := range m.inboxes {
		inbox := inbox
		unsub, err := m.client.watch(inbox.emailAddress, func(msg *Message) {
			m.emit(inbox, msg)
		})
		if err != nil {
			m.client.logger.Warn("monitor inbox", "address", inbox.emailAddress, "err", err)
			continue
		}
		m.unsubscribers = append(m.unsubscribers, unsub)
	}
}

// emit calls all registered callbacks with the new message.
func (m *InboxMonitor) emit(inbox *Inbox, msg *Message) {
	m.mu.RLock()
	callbacks := make([]MessageCallback, 0, len(m.callbacks))
	for _, cb := range m.callbacks {
		callbacks = append(callbacks, cb)
	}
	m.mu.RUnlock()

	// Low volume expected; spawning per-message is fine.
	for _, callback := range callbacks {
		go callback(inbox, msg)
	}
}
