// Package memory provides in-memory snapshot and cycle-log stores,
// used for tests and DSN-less runs.
package memory

import (
	"context"
	"sync"

	"github.com/aromano/pricewatch/internal/tracker"
)

// Store keeps snapshots and cycle logs in process memory.
type Store struct {
	mu    sync.RWMutex
	snaps map[string][]tracker.ProductSnapshot
	logs  []tracker.CycleLog
}

// New builds an empty Store.
func New() *Store {
	return &Store{snaps: make(map[string][]tracker.ProductSnapshot)}
}

// GetLastByURL returns a copy of the most recent snapshot, or nil when
// the URL has never been observed.
func (s *Store) GetLastByURL(_ context.Context, sourceURL string) (*tracker.ProductSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.snaps[sourceURL]
	if len(history) == 0 {
		return nil, nil
	}
	last := history[len(history)-1]
	return &last, nil
}

// Append records a snapshot.
func (s *Store) Append(_ context.Context, snap tracker.ProductSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.SourceURL] = append(s.snaps[snap.SourceURL], snap)
	return nil
}

// AppendLog records a cycle log entry.
func (s *Store) AppendLog(_ context.Context, entry tracker.CycleLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	return nil
}

// Logs returns a copy of the recorded cycle logs.
func (s *Store) Logs() []tracker.CycleLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tracker.CycleLog, len(s.logs))
	copy(out, s.logs)
	return out
}

// Count returns the number of snapshots stored for a URL.
func (s *Store) Count(sourceURL string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps[sourceURL])
}
