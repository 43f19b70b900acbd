package guerrillamail

import (
	"sync"
	"sync/atomic"
)

// subscription is one registered callback for an alias.
type subscription struct {
	callback func(*Message)
	active   atomic.Bool
}

// subscriptionManager fans poller events out to callbacks keyed by alias.
// Unsubscribed callbacks are skipped by every later notify.
type subscriptionManager struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]*subscription // alias -> subID -> subscription
	nextID atomic.Uint64
}

func newSubscriptionManager() *subscriptionManager {
	return &subscriptionManager{
		subs: make(map[string]map[uint64]*subscription),
	}
}

// subscribe registers callback for messages of alias and returns the
// function that removes it. The callback runs on the poll goroutine and
// must not block.
func (m *subscriptionManager) subscribe(alias string, callback func(*Message)) func() {
	id := m.nextID.Add(1)
	sub := &subscription{callback: callback}
	sub.active.Store(true)

	m.mu.Lock()
	if m.subs[alias] == nil {
		m.subs[alias] = make(map[uint64]*subscription)
	}
	m.subs[alias][id] = sub
	m.mu.Unlock()

	return func() {
		m.unsubscribe(alias, id)
	}
}

// unsubscribe removes a subscription. Safe to call multiple times.
func (m *subscriptionManager) unsubscribe(alias string, id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	aliasSubs, ok := m.subs[alias]
	if !ok {
		return
	}
	if sub, ok := aliasSubs[id]; ok {
		sub.active.Store(false)
		delete(aliasSubs, id)
	}
	if len(aliasSubs) == 0 {
		delete(m.subs, alias)
	}
}

// notify calls every active callback for alias outside the lock.
func (m *subscriptionManager) notify(alias string, msg *Message) {
	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subs[alias]))
	for _, sub := range m.subs[alias] {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	for _, sub := range subs {
		if sub.active.Load() {
			sub.callback(msg)
		}
	}
}

// count returns the number of subscriptions for alias.
func (m *subscriptionManager) count(alias string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[alias])
}

// clear deactivates and removes every subscription.
func (m *subscriptionManager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, aliasSubs := range m.subs {
		for _, sub := range aliasSubs {
			sub.active.Store(false)
		}
	}
	m.subs = make(map[string]map[uint64]*subscription)
}
