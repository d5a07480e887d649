// Package events carries chatbot lifecycle and wizard progress events to
// Kafka and to websocket subscribers.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	WizardStepCompleted Type = "wizard.step_completed"
	WizardStepReverted  Type = "wizard.step_reverted"
	WizardCancelled     Type = "wizard.cancelled"
	ChatbotDraftCreated Type = "chatbot.draft_created"
	ChatbotActivated    Type = "chatbot.activated"
)

type Event struct {
	Type       Type      `json:"type"`
	AccountID  uuid.UUID `json:"account_id"`
	ChatbotID  uuid.UUID `json:"chatbot_id"`
	SessionID  uuid.UUID `json:"session_id"`
	Step       int       `json:"step,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
