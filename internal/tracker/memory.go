package tracker

import (
	"context"
	"sync"
	"time"
)

// memoryStore keeps records in a map. Volatile; used by tests and the
// "memory" driver.
type memoryStore struct {
	mu   sync.Mutex
	recs map[string]Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() Store {
	return &memoryStore{recs: map[string]Record{}}
}

func (s *memoryStore) Register(ctx context.Context, userID string) (RegisterResult, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[userID]; ok {
		return AlreadyExists, nil
	}
	s.recs[userID] = Record{UserID: userID}
	return Created, nil
}

func (s *memoryStore) Get(ctx context.Context, userID string) (Record, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[userID]
	return rec, ok, nil
}

func (s *memoryStore) SetActivity(ctx context.Context, userID string, at time.Time) error {
	_ = ctx
	at = at.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[userID]
	if !ok {
		return ErrNotRegistered
	}
	rec.LastActivity = &at
	rec.Notified = false
	s.recs[userID] = rec
	return nil
}

func (s *memoryStore) MarkNotified(ctx context.Context, userID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[userID]
	if !ok {
		return ErrNotRegistered
	}
	rec.Notified = true
	s.recs[userID] = rec
	return nil
}

func (s *memoryStore) All(ctx context.Context) ([]Record, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec)
	}
	return out, nil
}

func (s *memoryStore) Close() error { return nil }
