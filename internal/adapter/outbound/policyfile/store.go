// Package policyfile persists policy documents as one YAML file per
// document, for deployments that want policies to survive a restart
// without a database.
package policyfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/latchagent/latch-core/internal/domain/policy"
)

// Store implements policy.Store against a directory of "<id>.yaml" files,
// with an in-memory cache read once at Open time. Safe for concurrent use.
type Store struct {
	dir string

	mu   sync.RWMutex
	docs map[string]policy.PolicyDocument
}

var _ policy.Store = (*Store)(nil)

// Open loads every "*.yaml" file in dir into an in-memory cache. dir is
// created if it does not already exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create policy directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read policy directory: %w", err)
	}

	docs := make(map[string]policy.PolicyDocument, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		doc, err := readDocument(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("load policy file %s: %w", entry.Name(), err)
		}
		docs[doc.ID] = doc
	}

	return &Store{dir: dir, docs: docs}, nil
}

func readDocument(path string) (policy.PolicyDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return policy.PolicyDocument{}, err
	}
	var doc policy.PolicyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return policy.PolicyDocument{}, err
	}
	return doc, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".yaml")
}

func (s *Store) Get(ctx context.Context, id string) (*policy.PolicyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, policy.ErrNotFound
	}
	cloned := doc.Clone()
	return &cloned, nil
}

func (s *Store) List(ctx context.Context) ([]policy.PolicyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]policy.PolicyDocument, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc.Clone())
	}
	return out, nil
}

func (s *Store) Save(ctx context.Context, doc *policy.PolicyDocument) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal policy document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path(doc.ID), data, 0600); err != nil {
		return fmt.Errorf("write policy file: %w", err)
	}
	s.docs[doc.ID] = doc.Clone()
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove policy file: %w", err)
	}
	delete(s.docs, id)
	return nil
}
