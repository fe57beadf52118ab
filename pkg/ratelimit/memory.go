package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps buckets in process memory. Each bucket has its own mutex
// so unrelated keys never contend; the map lock is only held to look up,
// insert or sweep.
type MemoryStore struct {
	mu         sync.RWMutex
	buckets    map[string]*memBucket
	maxBuckets int
}

type memBucket struct {
	mu     sync.Mutex
	start  time.Time
	window time.Duration
	count  int64
	// dead marks a bucket removed by Sweep. An increment that raced the sweep
	// and still holds the pointer retries against the map instead.
	dead bool
}

type MemoryOption func(*MemoryStore)

// WithMaxBuckets makes the store sweep elapsed buckets whenever a new key
// would grow it past n. Live windows are never evicted, so n is a soft bound.
func WithMaxBuckets(n int) MemoryOption {
	return func(s *MemoryStore) { s.maxBuckets = n }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{buckets: make(map[string]*memBucket)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration, now time.Time) (Bucket, error) {
	for {
		b := s.bucket(key, now)

		b.mu.Lock()
		if b.dead {
			b.mu.Unlock()
			continue
		}

		if b.count == 0 || now.Sub(b.start) >= window {
			b.start = now
			b.count = 1
		} else {
			b.count++
		}
		b.window = window
		out := Bucket{WindowStart: b.start, Count: b.count}
		b.mu.Unlock()

		return out, nil
	}
}

func (s *MemoryStore) bucket(key string, now time.Time) *memBucket {
	s.mu.RLock()
	b, ok := s.buckets[key]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[key]; ok {
		return b
	}
	if s.maxBuckets > 0 && len(s.buckets) >= s.maxBuckets {
		s.sweepLocked(now)
	}

	b = &memBucket{}
	s.buckets[key] = b
	return b
}

// Sweep drops every bucket whose window has elapsed at now and returns how
// many were removed. A removed key simply opens a new window on its next
// request, which is what it would have done anyway.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for key, b := range s.buckets {
		b.mu.Lock()
		if b.count == 0 || now.Sub(b.start) >= b.window {
			b.dead = true
			delete(s.buckets, key)
			removed++
		}
		b.mu.Unlock()
	}
	return removed
}

// Len reports the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets)
}
