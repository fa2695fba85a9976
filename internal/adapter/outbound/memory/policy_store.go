// Package memory provides in-memory implementations of outbound ports, for
// tests and for single-user deployments that don't need the SQLite-backed
// store named (but not specified) in spec.md §1.
package memory

import (
	"context"
	"sync"

	"github.com/latchagent/latch-core/internal/domain/policy"
)

// PolicyStore implements policy.Store with a guarded map. Safe for
// concurrent use.
type PolicyStore struct {
	mu   sync.RWMutex
	docs map[string]policy.PolicyDocument
}

// NewPolicyStore creates an empty policy store.
func NewPolicyStore() *PolicyStore {
	return &PolicyStore{docs: make(map[string]policy.PolicyDocument)}
}

func (s *PolicyStore) Get(ctx context.Context, id string) (*policy.PolicyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, policy.ErrNotFound
	}
	cloned := doc.Clone()
	return &cloned, nil
}

func (s *PolicyStore) List(ctx context.Context) ([]policy.PolicyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]policy.PolicyDocument, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc.Clone())
	}
	return out, nil
}

func (s *PolicyStore) Save(ctx context.Context, doc *policy.PolicyDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc.Clone()
	return nil
}

func (s *PolicyStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}
