package store

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local Store for tests. It honors the same
// atomicity contract as the Redis implementation: every operation
// holds the mutex end to end, so PopHead and SetNX behave as single
// atomic steps under concurrent callers. TTLs are enforced lazily on
// access.
type Memory struct {
	mu      sync.Mutex
	values  map[string]string
	lists   map[string][]string
	sets    map[string]map[string]struct{}
	hashes  map[string]map[string]string
	expires map[string]time.Time

	// now is swappable so tests can force expiry without sleeping.
	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		values:  make(map[string]string),
		lists:   make(map[string][]string),
		sets:    make(map[string]map[string]struct{}),
		hashes:  make(map[string]map[string]string),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test helper only.
func (s *Memory) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// expireLocked drops the key in every namespace if its TTL lapsed.
func (s *Memory) expireLocked(key string) {
	dl, ok := s.expires[key]
	if !ok || s.now().Before(dl) {
		return
	}
	delete(s.values, key)
	delete(s.lists, key)
	delete(s.sets, key)
	delete(s.hashes, key)
	delete(s.expires, key)
}

func (s *Memory) setTTLLocked(key string, ttl time.Duration) {
	if ttl > 0 {
		s.expires[key] = s.now().Add(ttl)
	} else {
		delete(s.expires, key)
	}
}

func (s *Memory) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	return s.values[key], nil
}

func (s *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.setTTLLocked(key, ttl)
	return nil
}

func (s *Memory) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value
	s.setTTLLocked(key, ttl)
	return true, nil
}

func (s *Memory) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
		delete(s.lists, key)
		delete(s.sets, key)
		delete(s.hashes, key)
		delete(s.expires, key)
	}
	return nil
}

func (s *Memory) PushTail(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	s.lists[key] = append(s.lists[key], value)
	return nil
}

func (s *Memory) PopHead(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	l := s.lists[key]
	if len(l) == 0 {
		return "", nil
	}
	head := l[0]
	if len(l) == 1 {
		delete(s.lists, key)
	} else {
		s.lists[key] = l[1:]
	}
	return head, nil
}

func (s *Memory) RemoveFromList(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	l := s.lists[key]
	kept := l[:0]
	for _, v := range l {
		if v != value {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(s.lists, key)
	} else {
		s.lists[key] = kept
	}
	return nil
}

func (s *Memory) AddToSet(_ context.Context, key string, ttl time.Duration, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	s.setTTLLocked(key, ttl)
	return nil
}

func (s *Memory) SetMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	out := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func (s *Memory) IsSetMember(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	_, ok := s.sets[key][member]
	return ok, nil
}

func (s *Memory) SetHash(_ context.Context, key string, fields map[string]string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string)
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	s.setTTLLocked(key, ttl)
	return nil
}

func (s *Memory) GetHash(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}
