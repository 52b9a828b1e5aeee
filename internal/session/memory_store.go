package session

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

type memoryEntry struct {
	raw       []byte
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Entries are copied on the way
// in and out so callers never share mutable state.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore; ttl <= 0 keeps sessions forever
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id)
}

func (s *MemoryStore) Save(_ context.Context, id string, data *Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(id, data)
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Data)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.getLocked(id)
	if err != nil {
		return err
	}
	fn(data)
	return s.saveLocked(id, data)
}

func (s *MemoryStore) getLocked(id string) (*Data, error) {
	entry, ok := s.entries[id]
	if ok && s.ttl > 0 && s.now().After(entry.expiresAt) {
		delete(s.entries, id)
		ok = false
	}

	data := &Data{}
	if !ok {
		return data, nil
	}
	if err := json.Unmarshal(entry.raw, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *MemoryStore) saveLocked(id string, data *Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.entries[id] = memoryEntry{raw: raw, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}
