package bus

import (
	"context"
	"sync"
)

// Memory is an in-process Bus. It backs tests and single-node
// deployments where no Redis address is configured.
type Memory struct {
	mu   sync.RWMutex
	subs map[string][]Handler
}

// NewMemory constructs an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]Handler)}
}

// Publish delivers payload synchronously to every handler subscribed to
// channel.
func (m *Memory) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.RLock()
	handlers := make([]Handler, len(m.subs[channel]))
	copy(handlers, m.subs[channel])
	m.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
	return nil
}

// Subscribe registers h for channel.
func (m *Memory) Subscribe(_ context.Context, channel string, h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subs[channel] = append(m.subs[channel], h)
	return nil
}

// Close drops all subscriptions.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subs = make(map[string][]Handler)
	return nil
}
