package events

import (
	"context"
	"sync"
)

var _ Publisher = (*MemoryPublisher)(nil)

// MemoryPublisher records events in memory for testing.
type MemoryPublisher struct {
	events []Event
	err    error
	mu     sync.RWMutex
}

// NewMemoryPublisher creates an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the event, or returns the configured failure.
func (m *MemoryPublisher) Publish(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

// FailWith makes every following Publish return err.
func (m *MemoryPublisher) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Events returns a copy of the recorded events.
func (m *MemoryPublisher) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Types returns the recorded event types in order.
func (m *MemoryPublisher) Types() []Type {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}
