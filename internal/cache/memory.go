package cache

import (
	"context"
	"sync"

	"hostelcare/internal/model"
)

// MemoryStore keeps the snapshot in process memory. Used in tests and when
// the durable store cannot be opened.
type MemoryStore struct {
	mu       sync.Mutex
	snapshot model.CachedSnapshot
	present  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Read(_ context.Context, subjectID string) (model.CachedSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present || s.snapshot.Profile.SubjectID != subjectID {
		return model.CachedSnapshot{}, false
	}
	return s.snapshot, true
}

func (s *MemoryStore) Write(_ context.Context, snapshot model.CachedSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	s.present = true
}

func (s *MemoryStore) Clear(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = model.CachedSnapshot{}
	s.present = false
}
