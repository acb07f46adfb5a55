package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
	now  func() time.Time
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document), now: time.Now}
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, doc Document) (Document, error) {
	doc = prepare(doc, m.now())
	doc.Tags = append([]string{}, doc.Tags...)

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.docs[doc.ID]; ok {
		doc.CreatedAt = old.CreatedAt
	}
	m.docs[doc.ID] = doc
	return doc, nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, summarize(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.docs, id)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
