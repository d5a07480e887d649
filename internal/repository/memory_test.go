package repository

import (
	"context"
	"testing"

	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	account := uuid.New()
	bot := createDraft(t, s, account, "Original")

	loaded, err := s.Load(ctx, account, bot.ID)
	require.NoError(t, err)
	loaded.Name = "Mutated"
	loaded.Configuration.Theme = "dark"

	again, err := s.Load(ctx, account, bot.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Name)
	assert.Empty(t, again.Configuration.Theme)
}

func TestMemoryStoreRejectsUnknownColumns(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	account := uuid.New()
	bot := createDraft(t, s, account, "Strict")

	assert.Error(t, s.UpdateChatbot(ctx, account, bot.ID, map[string]interface{}{"colour": "red"}))
	assert.Error(t, s.UpdateConfiguration(ctx, account, bot.ID, []string{"colour"}, func(*models.ChatbotConfiguration) {}))
}
