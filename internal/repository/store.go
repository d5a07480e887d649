// Package repository persists the chatbot aggregate, teams, usage counters,
// accounts and audit entries. GormStore backs production; MemoryStore serves
// local development and tests.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound covers both missing rows and rows owned by another account.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique key clashes and rejected status changes.
	ErrConflict = errors.New("conflict")
)

// ChatbotFilter narrows ListChatbots. Zero values mean no filtering.
type ChatbotFilter struct {
	Status models.ChatbotStatus
}

type AuditFilter struct {
	Action  string
	Page    int
	PerPage int
}

type Store interface {
	// Aggregate
	CreateDraft(ctx context.Context, bot *models.Chatbot) error
	UpdateChatbot(ctx context.Context, accountID, chatbotID uuid.UUID, updates map[string]interface{}) error
	UpdateConfiguration(ctx context.Context, accountID, chatbotID uuid.UUID, columns []string, apply func(*models.ChatbotConfiguration)) error
	Load(ctx context.Context, accountID, chatbotID uuid.UUID) (*models.Chatbot, error)
	Activate(ctx context.Context, accountID, chatbotID uuid.UUID, at time.Time) (bool, error)
	ListChatbots(ctx context.Context, accountID uuid.UUID, filter ChatbotFilter) ([]models.Chatbot, error)
	DeleteChatbot(ctx context.Context, accountID, chatbotID uuid.UUID) error
	TransitionStatus(ctx context.Context, accountID, chatbotID uuid.UUID, from, to models.ChatbotStatus) error

	// Teams
	FindOrCreateTeam(ctx context.Context, accountID uuid.UUID, name string) (*models.Team, error)

	// Usage
	IncrementChatbotsCreated(ctx context.Context, accountID uuid.UUID) error
	GetUsage(ctx context.Context, accountID uuid.UUID) (*models.UsageCounter, error)

	// Accounts
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)

	// Audit
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
	ListAuditLogs(ctx context.Context, accountID uuid.UUID, filter AuditFilter) ([]models.AuditLog, int64, error)

	Ping(ctx context.Context) error
}

// NormalizePage clamps audit pagination the same way for every store.
func (f AuditFilter) NormalizePage() (page, perPage int) {
	page, perPage = f.Page, f.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}
	return page, perPage
}
