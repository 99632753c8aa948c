package resource

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/matzehuels/graphsync/pkg/observability"
)

// MemoryStore is an in-process Client. IDs are assigned from a counter shared
// by all collections, so they read like database row ids ("1", "2", ...).
type MemoryStore struct {
	mu      sync.RWMutex
	next    int
	records map[string]map[string]Resource
	order   map[string][]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]Resource),
		order:   make(map[string][]string),
	}
}

const memoryBackend = "memory"

// Seed inserts resources with their IDs preserved. Resources without an ID get
// one assigned. It is meant for fixtures and CLI bootstrapping.
func (s *MemoryStore) Seed(rs ...Resource) []Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Resource, 0, len(rs))
	for _, r := range rs {
		out = append(out, s.insert(r.Clone()))
	}
	return out
}

func (s *MemoryStore) FetchCollection(ctx context.Context, spec Spec) ([]Resource, error) {
	var out []Resource
	err := observability.ObserveStore(ctx, memoryBackend, "fetch", spec.Collection, func() error {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for _, id := range s.order[spec.Collection] {
			r := s.records[spec.Collection][id]
			if spec.Matches(r) {
				out = append(out, r.Clone())
			}
		}
		return nil
	})
	return out, err
}

func (s *MemoryStore) FetchOne(ctx context.Context, collection, id string) (Resource, error) {
	var out Resource
	err := observability.ObserveStore(ctx, memoryBackend, "get", collection, func() error {
		s.mu.RLock()
		defer s.mu.RUnlock()
		r, ok := s.records[collection][id]
		if !ok {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		out = r.Clone()
		return nil
	})
	return out, err
}

func (s *MemoryStore) Create(ctx context.Context, r Resource) (Resource, error) {
	var out Resource
	err := observability.ObserveStore(ctx, memoryBackend, "create", r.Collection, func() error {
		if r.Collection == "" {
			return fmt.Errorf("create without collection: %w", ErrInvalid)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		r.ID = ""
		out = s.insert(r.Clone()).Clone()
		return nil
	})
	return out, err
}

func (s *MemoryStore) Update(ctx context.Context, r Resource) (Resource, error) {
	err := observability.ObserveStore(ctx, memoryBackend, "update", r.Collection, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.records[r.Collection][r.ID]; !ok {
			return fmt.Errorf("%s/%s: %w", r.Collection, r.ID, ErrNotFound)
		}
		s.records[r.Collection][r.ID] = r.Clone()
		return nil
	})
	return r, err
}

func (s *MemoryStore) Delete(ctx context.Context, r Resource) error {
	return observability.ObserveStore(ctx, memoryBackend, "delete", r.Collection, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.records[r.Collection][r.ID]; !ok {
			return fmt.Errorf("%s/%s: %w", r.Collection, r.ID, ErrNotFound)
		}
		delete(s.records[r.Collection], r.ID)
		ids := s.order[r.Collection]
		for i, id := range ids {
			if id == r.ID {
				s.order[r.Collection] = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
		return nil
	})
}

// Len returns the number of resources stored in collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[collection])
}

// insert must be called with s.mu held.
func (s *MemoryStore) insert(r Resource) Resource {
	if r.ID == "" {
		s.next++
		r.ID = strconv.Itoa(s.next)
	} else if n, err := strconv.Atoi(r.ID); err == nil && n > s.next {
		s.next = n
	}
	if s.records[r.Collection] == nil {
		s.records[r.Collection] = make(map[string]Resource)
	}
	if _, exists := s.records[r.Collection][r.ID]; !exists {
		s.order[r.Collection] = append(s.order[r.Collection], r.ID)
	}
	s.records[r.Collection][r.ID] = r
	return r
}

var _ Client = (*MemoryStore)(nil)
