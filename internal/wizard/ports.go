package wizard

import (
	"context"
	"time"

	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/google/uuid"
)

// AggregateStore reads and writes the chatbot aggregate. Every call is scoped
// to the owning account; a foreign chatbot behaves exactly like a missing one.
type AggregateStore interface {
	CreateDraft(ctx context.Context, bot *models.Chatbot) error
	UpdateChatbot(ctx context.Context, accountID, chatbotID uuid.UUID, updates map[string]interface{}) error
	UpdateConfiguration(ctx context.Context, accountID, chatbotID uuid.UUID, columns []string, apply func(*models.ChatbotConfiguration)) error
	Load(ctx context.Context, accountID, chatbotID uuid.UUID) (*models.Chatbot, error)
	Activate(ctx context.Context, accountID, chatbotID uuid.UUID, at time.Time) (bool, error)
}

type TeamStore interface {
	FindOrCreateTeam(ctx context.Context, accountID uuid.UUID, name string) (*models.Team, error)
}

// UsageStore is a plain counter. Idempotence per chatbot is the Finalizer's job.
type UsageStore interface {
	IncrementChatbotsCreated(ctx context.Context, accountID uuid.UUID) error
}

// SessionStore keeps wizard sessions between requests. Get and Delete return
// ErrSessionNotFound for unknown or expired ids.
type SessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Locker serializes transitions of one session. Lock fails with
// ErrSessionBusy instead of waiting when the key is already held.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// CounterReconciler takes over counter increments the Finalizer gave up on.
type CounterReconciler interface {
	Enqueue(accountID, chatbotID uuid.UUID)
}
