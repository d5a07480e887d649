package session

import (
	"context"
	"sync"

	"github.com/ahmetk3436/chatforge/internal/wizard"
)

// LocalLocker is an in-process try-lock keyed by session id.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Lock acquires key or fails with wizard.ErrSessionBusy. The returned
// function releases it and is safe to call more than once.
func (l *LocalLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, wizard.ErrSessionBusy
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
