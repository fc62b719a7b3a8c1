package alert

import (
	"context"
	"sync"
)

// Memory records sent messages in process memory. Used in tests and as a
// stand-in when no transport is configured.
type Memory struct {
	mu       sync.Mutex
	messages []string

	// FailWith, when set, is returned by every Send.
	FailWith error
}

// NewMemory builds an empty recorder.
func NewMemory() *Memory {
	return &Memory{}
}

// Send implements tracker.Notifier.
func (m *Memory) Send(_ context.Context, message string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

// Messages returns a copy of the recorded messages.
func (m *Memory) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.messages))
	copy(out, m.messages)
	return out
}
