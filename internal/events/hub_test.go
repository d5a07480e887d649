package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversOnlyToSessionSubscribers(t *testing.T) {
	hub := NewHub(4)
	sessionA, sessionB := uuid.New(), uuid.New()

	chA, cancelA := hub.Subscribe(sessionA)
	defer cancelA()
	chB, cancelB := hub.Subscribe(sessionB)
	defer cancelB()

	require.NoError(t, hub.Publish(context.Background(), Event{Type: WizardStepCompleted, SessionID: sessionA, Step: 1}))

	select {
	case ev := <-chA:
		assert.Equal(t, WizardStepCompleted, ev.Type)
		assert.Equal(t, 1, ev.Step)
	case <-time.After(time.Second):
		t.Fatal("expected event for session A")
	}

	select {
	case ev := <-chB:
		t.Fatalf("session B received unexpected event %v", ev)
	default:
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(1)
	session := uuid.New()

	ch, cancel := hub.Subscribe(session)
	assert.Equal(t, 1, hub.Subscribers(session))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers(session))

	// Publishing after unsubscribe must not panic.
	require.NoError(t, hub.Publish(context.Background(), Event{SessionID: session}))
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub(1)
	session := uuid.New()
	ch, cancel := hub.Subscribe(session)
	defer cancel()

	for i := 1; i <= 3; i++ {
		require.NoError(t, hub.Publish(context.Background(), Event{SessionID: session, Step: i}))
	}

	ev := <-ch
	assert.Equal(t, 1, ev.Step)
	select {
	case extra := <-ch:
		t.Fatalf("expected dropped events, got %v", extra)
	default:
	}
}

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, Event) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	hub := NewHub(1)
	session := uuid.New()
	ch, cancel := hub.Subscribe(session)
	defer cancel()

	err := Multi{failingPublisher{err: boom}, nil, hub, Nop{}}.Publish(context.Background(), Event{SessionID: session})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, ch, 1)
}
