package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps counters in process memory. Expired windows are swept on
// every increment.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*memoryCounter
	now  func() time.Time
}

type memoryCounter struct {
	count     int64
	windowEnd time.Time
}

// NewMemoryStore constructs an in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]*memoryCounter), now: time.Now}
}

// WithClock overrides the time source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MemoryStore) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, counter := range s.data {
		if !counter.windowEnd.After(now) {
			delete(s.data, k)
		}
	}

	counter, ok := s.data[key]
	if !ok {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}
	counter.count++

	return counter.count, counter.windowEnd.Sub(now), nil
}
