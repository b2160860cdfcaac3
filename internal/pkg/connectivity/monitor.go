// Package connectivity tracks whether the server is reachable and
// notifies subscribers on changes.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
)

// ProbeFunc returns nil when the server is reachable.
type ProbeFunc func(ctx context.Context) error

type Monitor struct {
	probe ProbeFunc

	mu          sync.RWMutex
	online      bool
	nextID      int
	subscribers map[int]func(online bool)
}

// NewMonitor starts offline until the first Check succeeds.
func NewMonitor(probe ProbeFunc) *Monitor {
	return &Monitor{
		probe:       probe,
		subscribers: make(map[int]func(online bool)),
	}
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe registers fn for state changes and returns the cleanup
// function. fn runs on the goroutine that observed the change.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Check runs the probe and records the result. It has the signature of a
// scheduler job; a failed probe is a state, not an error.
func (m *Monitor) Check(ctx context.Context) error {
	err := m.probe(ctx)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	m.Set(err == nil)
	if err != nil {
		slog.Debug("Connectivity probe failed", "error", err)
	}
	return nil
}

// Set records the state and notifies subscribers when it changed.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	slog.Info("Connectivity changed", "online", online)
	for _, fn := range subs {
		fn(online)
	}
}
