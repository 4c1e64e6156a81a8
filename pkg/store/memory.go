package store

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore keeps everything in process memory. Used when no durable
// backend is configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string][]byte
	streams map[string][]Entry
	seq     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string][]byte),
		streams: make(map[string][]Entry),
	}
}

func (s *MemoryStore) Persist(_ context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *MemoryStore) Append(_ context.Context, stream string, data []byte) (string, error) {
	if stream == "" {
		return "", ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := strconv.FormatInt(s.seq, 10)
	s.streams[stream] = append(s.streams[stream], Entry{ID: id, Data: append([]byte(nil), data...)})
	return id, nil
}

func (s *MemoryStore) List(_ context.Context, stream string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, len(s.streams[stream]))
	copy(entries, s.streams[stream])
	return entries, nil
}

func (s *MemoryStore) Delete(_ context.Context, stream string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.streams[stream][:0]
	for _, e := range s.streams[stream] {
		if _, ok := drop[e.ID]; !ok {
			kept = append(kept, e)
		}
	}
	s.streams[stream] = kept
	return nil
}

func (s *MemoryStore) Truncate(_ context.Context, stream string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, stream)
	return nil
}

func (s *MemoryStore) Len(_ context.Context, stream string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.streams[stream]), nil
}
