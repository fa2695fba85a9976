package memory

import (
	"context"
	"sync"

	"github.com/latchagent/latch-core/internal/domain/settings"
)

// SettingsStore implements settings.Store with a guarded map, keyed by
// sessionId. A stand-in for the desktop UI's own settings persistence,
// which lives outside this module.
type SettingsStore struct {
	mu         sync.RWMutex
	autoAccept map[string]string
}

var _ settings.Store = (*SettingsStore)(nil)

// NewSettingsStore creates an empty settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{autoAccept: make(map[string]string)}
}

func (s *SettingsStore) AutoAccept(ctx context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoAccept[sessionID], nil
}

// SetAutoAccept is a test/admin convenience for changing the toggle.
func (s *SettingsStore) SetAutoAccept(sessionID, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoAccept[sessionID] = value
}
