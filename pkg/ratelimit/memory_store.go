package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. Suitable for tests and
// single-node deployments; it provides no cross-process coordination.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

type window struct {
	timestamps []time.Time

	// windowLen is the window length this key was last checked against,
	// so the sweeper knows when all remaining entries have expired.
	windowLen time.Duration
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often idle keys are swept.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.cleanupInterval = interval
		}
	}
}

// NewMemoryStore creates an in-memory store with automatic cleanup of
// idle keys.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		windows:         make(map[string]*window),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()

	return s
}

// AddAndCount prunes entries older than now-window, records now, and
// returns the resulting count. The single mutex gives the same atomicity
// the Redis transaction provides remotely.
func (s *MemoryStore) AddAndCount(ctx context.Context, key string, now time.Time, windowLen time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		w = &window{}
		s.windows[key] = w
	}

	w.timestamps = prune(w.timestamps, now.Add(-windowLen))
	w.timestamps = append(w.timestamps, now)
	w.windowLen = windowLen

	return int64(len(w.timestamps)), nil
}

// Count prunes and counts without recording.
func (s *MemoryStore) Count(ctx context.Context, key string, now time.Time, windowLen time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		return 0, nil
	}

	w.timestamps = prune(w.timestamps, now.Add(-windowLen))
	w.windowLen = windowLen
	return int64(len(w.timestamps)), nil
}

// Reset clears all entries for the key.
func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, key)
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeIdle()
		case <-s.stopCleanup:
			return
		}
	}
}

// removeIdle drops keys whose every recorded entry has left its window,
// mirroring the TTL expiry the Redis store gets for free. Keys with any
// in-window entry are kept regardless of how long ago they were checked;
// dropping them would erase live counts and over-admit.
func (s *MemoryStore) removeIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, w := range s.windows {
		if len(w.timestamps) == 0 {
			delete(s.windows, key)
			continue
		}
		newest := w.timestamps[len(w.timestamps)-1]
		if newest.Before(now.Add(-w.windowLen)) {
			delete(s.windows, key)
		}
	}
}

// prune keeps timestamps at or after cutoff, preserving order.
func prune(timestamps []time.Time, cutoff time.Time) []time.Time {
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if !ts.Before(cutoff) {
			valid = append(valid, ts)
		}
	}
	return valid
}
