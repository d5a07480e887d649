// Package session stores wizard sessions and serializes their transitions,
// either in process or in Redis.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ahmetk3436/chatforge/internal/wizard"
	"github.com/google/uuid"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore keeps sessions as JSON in a map so callers never share a
// *wizard.Session with the store. Expired entries are dropped lazily.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[uuid.UUID]memoryEntry
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:   ttl,
		items: make(map[uuid.UUID]memoryEntry),
		now:   time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*wizard.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[id]
	if !ok {
		return nil, wizard.ErrSessionNotFound
	}
	if s.expired(entry) {
		delete(s.items, id)
		return nil, wizard.ErrSessionNotFound
	}

	var sess wizard.Session
	if err := json.Unmarshal(entry.data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

// Save stores the session and restarts its TTL.
func (s *MemoryStore) Save(_ context.Context, sess *wizard.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	entry := memoryEntry{data: data}
	if s.ttl > 0 {
		entry.expires = s.now().Add(s.ttl)
	}
	s.items[sess.ID] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[id]
	delete(s.items, id)
	if !ok || s.expired(entry) {
		return wizard.ErrSessionNotFound
	}
	return nil
}

// Len reports the number of stored sessions, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && !s.now().Before(e.expires)
}

func (s *MemoryStore) sweepLocked() {
	for id, entry := range s.items {
		if s.expired(entry) {
			delete(s.items, id)
		}
	}
}
