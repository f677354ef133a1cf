package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map. With a positive ttl the values
// are dropped once the store has not been used for that long, like an expired Redis hash.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string

	ttl      time.Duration
	now      func() time.Time
	lastUsed time.Time
}

func NewMemoryStore() *MemoryStore {
	return newMemoryStore(0, time.Now)
}

func newMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	return &MemoryStore{
		values:   make(map[string]string),
		ttl:      ttl,
		now:      now,
		lastUsed: now(),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	v, ok := s.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	delete(s.values, key)
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.values = make(map[string]string)
	return nil
}

// touch slides the expiry. Callers hold mu.
func (s *MemoryStore) touch() {
	now := s.now()
	if s.expiredAt(now) {
		s.values = make(map[string]string)
	}
	s.lastUsed = now
}

func (s *MemoryStore) expiredAt(now time.Time) bool {
	return s.ttl > 0 && now.Sub(s.lastUsed) > s.ttl
}

func (s *MemoryStore) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiredAt(now)
}

// MemoryProvider keeps one MemoryStore per session id, so a session reopened after its
// workspace was dropped finds its data again. Stores unused for longer than ttl are
// forgotten; a zero ttl keeps them for the life of the process.
type MemoryProvider struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	stores map[string]*MemoryStore
}

func NewMemoryProvider(ttl time.Duration) *MemoryProvider {
	return &MemoryProvider{
		ttl:    ttl,
		now:    time.Now,
		stores: make(map[string]*MemoryStore),
	}
}

func (p *MemoryProvider) Open(_ context.Context, sessionID string) (Store, error) {
	if sessionID == "" {
		return nil, ErrNoSessionID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.expire(p.now())
	s, ok := p.stores[sessionID]
	if !ok {
		s = newMemoryStore(p.ttl, p.clock)
		p.stores[sessionID] = s
	}
	return s, nil
}

// Len reports how many sessions the provider currently holds.
func (p *MemoryProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stores)
}

func (p *MemoryProvider) clock() time.Time {
	return p.now()
}

// expire drops expired stores. Callers hold mu.
func (p *MemoryProvider) expire(now time.Time) {
	if p.ttl <= 0 {
		return
	}
	for id, s := range p.stores {
		if s.expired(now) {
			delete(p.stores, id)
		}
	}
}
