// Package connectivity tracks whether the remote service is reachable and
// tells interested parties when it becomes reachable again.
package connectivity

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/healthsync/internal/logging"
)

// Monitor holds the current online state. Subscribers registered with
// OnReconnect run once per offline to online transition, never on repeated
// online reports.
type Monitor struct {
	mu        sync.Mutex
	online    bool
	nextID    int
	reconnect map[int]func()
	change    map[int]func(online bool)
	logger    logging.Logger
}

func NewMonitor(initial bool, logger logging.Logger) *Monitor {
	return &Monitor{
		online:    initial,
		reconnect: make(map[int]func()),
		change:    make(map[int]func(bool)),
		logger:    logger.With("module", "connectivity"),
	}
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set records the latest reachability observation. Callbacks run on the
// calling goroutine after the state is updated.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	changeSubs := make([]func(bool), 0, len(m.change))
	for _, fn := range m.change {
		changeSubs = append(changeSubs, fn)
	}
	var reconnectSubs []func()
	if online {
		for _, fn := range m.reconnect {
			reconnectSubs = append(reconnectSubs, fn)
		}
	}
	m.mu.Unlock()

	if online {
		m.logger.Info(context.Background(), "switched to online mode")
	} else {
		m.logger.Warn(context.Background(), "switched to offline mode")
	}

	for _, fn := range changeSubs {
		fn(online)
	}
	for _, fn := range reconnectSubs {
		fn()
	}
}

// OnReconnect registers fn for offline to online transitions.
func (m *Monitor) OnReconnect(fn func()) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.reconnect[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.reconnect, id)
	}
}

// Subscribe registers fn for every state change in either direction.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.change[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.change, id)
	}
}
