package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryStore struct {
	items       map[string]Record
	mutex       sync.RWMutex
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-memory session store with a background GC loop.
func NewMemory(cfg Config) Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		items:       make(map[string]Record),
		ttl:         ttl,
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.CleanupExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Put(_ context.Context, rec Record) error {
	if rec.SessionID == "" || rec.Flow == "" {
		return fmt.Errorf("session id and flow required")
	}
	rec = rec.clone()
	rec.stamp(time.Now(), s.ttl)

	s.mutex.Lock()
	s.items[rec.Key()] = rec
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, sessionID, flow string) (Record, error) {
	s.mutex.RLock()
	rec, ok := s.items[Key(sessionID, flow)]
	s.mutex.RUnlock()
	if !ok || rec.Expired(time.Now()) {
		return Record{}, ErrNotFound
	}
	return rec.clone(), nil
}

func (s *memoryStore) Remove(_ context.Context, sessionID, flow string) error {
	s.mutex.Lock()
	delete(s.items, Key(sessionID, flow))
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]string, error) {
	now := time.Now()
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	keys := make([]string, 0, len(s.items))
	for key, rec := range s.items {
		if !rec.Expired(now) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *memoryStore) CleanupExpired(_ context.Context) error {
	now := time.Now()
	s.mutex.Lock()
	for key, rec := range s.items {
		if rec.Expired(now) {
			delete(s.items, key)
		}
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	now := time.Now()
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	active := 0
	for _, rec := range s.items {
		if !rec.Expired(now) {
			active++
		}
	}
	return map[string]any{
		"type":        DriverMemory,
		"total":       len(s.items),
		"active":      active,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
