package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises behaviour every Store implementation shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("DraftLifecycle", func(t *testing.T) { testDraftLifecycle(t, newStore(t)) })
	t.Run("ColumnScopedConfiguration", func(t *testing.T) { testColumnScopedConfiguration(t, newStore(t)) })
	t.Run("AccountScoping", func(t *testing.T) { testAccountScoping(t, newStore(t)) })
	t.Run("StatusTransitions", func(t *testing.T) { testStatusTransitions(t, newStore(t)) })
	t.Run("Teams", func(t *testing.T) { testTeams(t, newStore(t)) })
	t.Run("Usage", func(t *testing.T) { testUsage(t, newStore(t)) })
	t.Run("Accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("AuditPagination", func(t *testing.T) { testAuditPagination(t, newStore(t)) })
}

func createDraft(t *testing.T, s Store, accountID uuid.UUID, name string) *models.Chatbot {
	t.Helper()
	bot := &models.Chatbot{
		ID:        uuid.New(),
		AccountID: accountID,
		Name:      name,
		Status:    models.ChatbotStatusDraft,
	}
	require.NoError(t, s.CreateDraft(context.Background(), bot))
	return bot
}

func testDraftLifecycle(t *testing.T, s Store) {
	ctx := context.Background()
	account := uuid.New()
	bot := createDraft(t, s, account, "Draft")
	require.NotNil(t, bot.Configuration)

	// Same id twice is a conflict, never a second row.
	dup := &models.Chatbot{ID: bot.ID, AccountID: account, Name: "Again", Status: models.ChatbotStatusDraft}
	assert.ErrorIs(t, s.CreateDraft(ctx, dup), ErrConflict)

	require.NoError(t, s.UpdateChatbot(ctx, account, bot.ID, map[string]interface{}{
		"name":        "Renamed",
		"description": "Now with a description",
	}))

	loaded, err := s.Load(ctx, account, bot.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)
	assert.Equal(t, "Now with a description", loaded.Description)
	assert.Equal(t, models.ChatbotStatusDraft, loaded.Status)
	require.NotNil(t, loaded.Configuration)

	at := time.Now().UTC().Truncate(time.Second)
	activated, err := s.Activate(ctx, account, bot.ID, at)
	require.NoError(t, err)
	assert.True(t, activated)

	activated, err = s.Activate(ctx, account, bot.ID, at.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, activated, "second activation is a no-op")

	loaded, err = s.Load(ctx, account, bot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChatbotStatusActive, loaded.Status)
	require.NotNil(t, loaded.ActivatedAt)
	assert.True(t, at.Equal(*loaded.ActivatedAt))

	require.NoError(t, s.DeleteChatbot(ctx, account, bot.ID))
	_, err = s.Load(ctx, account, bot.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteChatbot(ctx, account, bot.ID), ErrNotFound)
}

func testColumnScopedConfiguration(t *testing.T, s Store) {
	ctx := context.Background()
	account := uuid.New()
	bot := createDraft(t, s, account, "Configured")

	temp := 0.4
	require.NoError(t, s.UpdateConfiguration(ctx, account, bot.ID,
		[]string{"ai_model", "temperature", "max_tokens"},
		func(cfg *models.ChatbotConfiguration) {
			cfg.AIModel = "gpt-4o"
			cfg.Temperature = &temp
			cfg.MaxTokens = 2048
		}))

	// A design write carrying stray model values must not touch model columns.
	require.NoError(t, s.UpdateConfiguration(ctx, account, bot.ID,
		[]string{"theme", "display_name"},
		func(cfg *models.ChatbotConfiguration) {
			cfg.Theme = "dark"
			cfg.DisplayName = "Helper"
			cfg.AIModel = "ignored"
		}))

	loaded, err := s.Load(ctx, account, bot.ID)
	require.NoError(t, err)
	cfg := loaded.Configuration
	require.NotNil(t, cfg)
	assert.Equal(t, "gpt-4o", cfg.AIModel)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.4, *cfg.Temperature, 1e-9)
	assert.Equal(t, 2048, cfg.MaxTokens)
	assert.Equal(t, "dark", cfg.Theme)
	assert.Equal(t, "Helper", cfg.DisplayName)
}

func testAccountScoping(t *testing.T, s Store) {
	ctx := context.Background()
	owner, intruder := uuid.New(), uuid.New()
	bot := createDraft(t, s, owner, "Private")

	_, err := s.Load(ctx, intruder, bot.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateChatbot(ctx, intruder, bot.ID, map[string]interface{}{"name": "Stolen"}), ErrNotFound)
	assert.ErrorIs(t, s.UpdateConfiguration(ctx, intruder, bot.ID, []string{"theme"},
		func(cfg *models.ChatbotConfiguration) { cfg.Theme = "dark" }), ErrNotFound)
	_, err = s.Activate(ctx, intruder, bot.ID, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteChatbot(ctx, intruder, bot.ID), ErrNotFound)

	bots, err := s.ListChatbots(ctx, intruder, ChatbotFilter{})
	require.NoError(t, err)
	assert.Empty(t, bots)

	loaded, err := s.Load(ctx, owner, bot.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private", loaded.Name)
	assert.Equal(t, models.ChatbotStatusDraft, loaded.Status)
}

func testStatusTransitions(t *testing.T, s Store) {
	ctx := context.Background()
	account := uuid.New()
	bot := createDraft(t, s, account, "Toggle")
	createDraft(t, s, account, "Other draft")

	err := s.TransitionStatus(ctx, account, bot.ID, models.ChatbotStatusActive, models.ChatbotStatusPaused)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.Activate(ctx, account, bot.ID, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.TransitionStatus(ctx, account, bot.ID, models.ChatbotStatusActive, models.ChatbotStatusPaused))

	paused, err := s.ListChatbots(ctx, account, ChatbotFilter{Status: models.ChatbotStatusPaused})
	require.NoError(t, err)
	require.Len(t, paused, 1)
	assert.Equal(t, bot.ID, paused[0].ID)

	all, err := s.ListChatbots(ctx, account, ChatbotFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	err = s.TransitionStatus(ctx, uuid.New(), bot.ID, models.ChatbotStatusPaused, models.ChatbotStatusActive)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testTeams(t *testing.T, s Store) {
	ctx := context.Background()
	account := uuid.New()

	first, err := s.FindOrCreateTeam(ctx, account, "Sales")
	require.NoError(t, err)
	again, err := s.FindOrCreateTeam(ctx, account, "Sales")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	other, err := s.FindOrCreateTeam(ctx, uuid.New(), "Sales")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID, "teams are per account")

	bot := createDraft(t, s, account, "Teamed")
	require.NoError(t, s.UpdateChatbot(ctx, account, bot.ID, map[string]interface{}{"team_id": &first.ID}))

	loaded, err := s.Load(ctx, account, bot.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Team)
	assert.Equal(t, "Sales", loaded.Team.Name)
}

func testUsage(t *testing.T, s Store) {
	ctx := context.Background()
	account := uuid.New()

	usage, err := s.GetUsage(ctx, account)
	require.NoError(t, err)
	assert.Zero(t, usage.ChatbotsCreated)

	require.NoError(t, s.IncrementChatbotsCreated(ctx, account))
	require.NoError(t, s.IncrementChatbotsCreated(ctx, account))

	usage, err = s.GetUsage(ctx, account)
	require.NoError(t, err)
	assert.EqualValues(t, 2, usage.ChatbotsCreated)
}

func testAccounts(t *testing.T, s Store) {
	ctx := context.Background()
	email := uuid.NewString() + "@example.com"

	account := &models.Account{Email: email, Name: "Owner", PasswordHash: "hash"}
	require.NoError(t, s.CreateAccount(ctx, account))
	require.NotEqual(t, uuid.Nil, account.ID)

	assert.ErrorIs(t, s.CreateAccount(ctx, &models.Account{Email: email, PasswordHash: "hash"}), ErrConflict)

	byID, err := s.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, email, byID.Email)

	byEmail, err := s.GetAccountByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, account.ID, byEmail.ID)

	_, err = s.GetAccount(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	usage, err := s.GetUsage(ctx, account.ID)
	require.NoError(t, err)
	assert.Zero(t, usage.ChatbotsCreated)
}

func testAuditPagination(t *testing.T, s Store) {
	ctx := context.Background()
	account := uuid.New()

	for i := 0; i < 5; i++ {
		action := "chatbot.pause"
		if i%2 == 0 {
			action = "chatbot.resume"
		}
		require.NoError(t, s.CreateAuditLog(ctx, &models.AuditLog{
			AccountID: account,
			Actor:     "owner@example.com",
			Action:    action,
			Target:    uuid.NewString(),
		}))
	}
	require.NoError(t, s.CreateAuditLog(ctx, &models.AuditLog{AccountID: uuid.New(), Actor: "x", Action: "chatbot.pause"}))

	logs, total, err := s.ListAuditLogs(ctx, account, AuditFilter{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, logs, 2)

	logs, _, err = s.ListAuditLogs(ctx, account, AuditFilter{Page: 3, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	logs, total, err = s.ListAuditLogs(ctx, account, AuditFilter{Action: "chatbot.resume"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	for _, entry := range logs {
		assert.Equal(t, "chatbot.resume", entry.Action)
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		in            AuditFilter
		page, perPage int
	}{
		{AuditFilter{}, 1, 50},
		{AuditFilter{Page: 3, PerPage: 20}, 3, 20},
		{AuditFilter{Page: -1, PerPage: 500}, 1, 50},
	}
	for _, tt := range tests {
		page, perPage := tt.in.NormalizePage()
		assert.Equal(t, tt.page, page)
		assert.Equal(t, tt.perPage, perPage)
	}
}
