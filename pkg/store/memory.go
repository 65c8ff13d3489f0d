package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/soundpatch/patchc/pkg/errors"
)

// MemoryStore is an in-process Store for development and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	patches map[string]StoredPatch
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{patches: make(map[string]StoredPatch)}
}

// Save persists a patch in memory.
func (s *MemoryStore) Save(ctx context.Context, sp StoredPatch) (StoredPatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if sp.ID == "" {
		sp.ID = NewID()
		sp.CreatedAt = now
	} else if existing, ok := s.patches[sp.ID]; ok {
		sp.CreatedAt = existing.CreatedAt
	} else if sp.CreatedAt.IsZero() {
		sp.CreatedAt = now
	}
	sp.UpdatedAt = now

	// Deep-copy the document so callers cannot mutate stored state.
	sp.Document = patchDocumentCopy(sp.Document)
	s.patches[sp.ID] = sp
	return sp, nil
}

// Get retrieves a stored patch by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (StoredPatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.patches[id]
	if !ok {
		return StoredPatch{}, errors.New(errors.ErrCodePatchNotFound, "patch %s not found", id)
	}
	sp.Document = patchDocumentCopy(sp.Document)
	return sp, nil
}

// List returns all stored patches, most recently updated first.
func (s *MemoryStore) List(ctx context.Context) ([]StoredPatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StoredPatch, 0, len(s.patches))
	for _, sp := range s.patches {
		sp.Document = patchDocumentCopy(sp.Document)
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes a stored patch.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patches[id]; !ok {
		return errors.New(errors.ErrCodePatchNotFound, "patch %s not found", id)
	}
	delete(s.patches, id)
	return nil
}

// Close does nothing for the memory store.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
