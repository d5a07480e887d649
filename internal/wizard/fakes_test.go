package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ahmetk3436/chatforge/internal/events"
	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/ahmetk3436/chatforge/internal/repository"
	"github.com/google/uuid"
)

// memSessions round-trips sessions through JSON like the real stores do.
type memSessions struct {
	mu    sync.Mutex
	data  map[uuid.UUID][]byte
	saves int
	fail  error
}

func newMemSessions() *memSessions {
	return &memSessions{data: make(map[uuid.UUID][]byte)}
}

func (m *memSessions) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *memSessions) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.data[s.ID] = raw
	m.saves++
	return nil
}

func (m *memSessions) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.data, id)
	return nil
}

func (m *memSessions) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

type keyLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newKeyLocker() *keyLocker {
	return &keyLocker{held: make(map[string]bool)}
}

func (l *keyLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, ErrSessionBusy
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}

type flakyUsage struct {
	mu       sync.Mutex
	failures int
	calls    int
	inner    UsageStore
}

func (f *flakyUsage) IncrementChatbotsCreated(ctx context.Context, accountID uuid.UUID) error {
	f.mu.Lock()
	f.calls++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("counter store unavailable")
	}
	return f.inner.IncrementChatbotsCreated(ctx, accountID)
}

type recordingReconciler struct {
	mu      sync.Mutex
	pending []uuid.UUID
}

func (r *recordingReconciler) Enqueue(_, chatbotID uuid.UUID) {
	r.mu.Lock()
	r.pending = append(r.pending, chatbotID)
	r.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// failingStore fails configuration writes with err; everything else passes through.
type failingStore struct {
	*repository.MemoryStore
	err error
}

func (f failingStore) UpdateConfiguration(context.Context, uuid.UUID, uuid.UUID, []string, func(*models.ChatbotConfiguration)) error {
	return f.err
}
