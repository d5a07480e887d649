package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/ahmetk3436/chatforge/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPersister() (*Persister, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	return NewPersister(store, store), store
}

func TestSaveBasicInfoCreatesDraftWithConfiguration(t *testing.T) {
	p, store := newTestPersister()
	ctx := context.Background()
	account, id := uuid.New(), uuid.New()

	bot, created, err := p.SaveBasicInfo(ctx, account, id, BasicInfo{Name: "Sales Bot", Team: "Support"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, id, bot.ID)

	loaded, err := store.Load(ctx, account, id)
	require.NoError(t, err)
	assert.Equal(t, models.ChatbotStatusDraft, loaded.Status)
	assert.Equal(t, "Sales Bot", loaded.Name)
	require.NotNil(t, loaded.Configuration, "configuration is co-created")
	require.NotNil(t, loaded.Team)
	assert.Equal(t, "Support", loaded.Team.Name)
}

func TestSaveBasicInfoRetryUpdatesInPlace(t *testing.T) {
	p, store := newTestPersister()
	ctx := context.Background()
	account, id := uuid.New(), uuid.New()

	_, _, err := p.SaveBasicInfo(ctx, account, id, BasicInfo{Name: "Sales Bot", Team: "Support"})
	require.NoError(t, err)
	_, created, err := p.SaveBasicInfo(ctx, account, id, BasicInfo{Name: "Support Bot", Description: "Answers tickets"})
	require.NoError(t, err)
	assert.False(t, created)

	bots, err := store.ListChatbots(ctx, account, repository.ChatbotFilter{})
	require.NoError(t, err)
	require.Len(t, bots, 1)
	assert.Equal(t, "Support Bot", bots[0].Name)
	assert.Equal(t, "Answers tickets", bots[0].Description)
	assert.Nil(t, bots[0].TeamID, "blank team clears the reference")
}

func TestSaveBasicInfoReusesTeam(t *testing.T) {
	p, store := newTestPersister()
	ctx := context.Background()
	account := uuid.New()

	first, _, err := p.SaveBasicInfo(ctx, account, uuid.New(), BasicInfo{Name: "A", Team: "Sales"})
	require.NoError(t, err)
	second, _, err := p.SaveBasicInfo(ctx, account, uuid.New(), BasicInfo{Name: "B", Team: "Sales"})
	require.NoError(t, err)

	require.NotNil(t, first.TeamID)
	require.NotNil(t, second.TeamID)
	assert.Equal(t, *first.TeamID, *second.TeamID)

	team, err := store.FindOrCreateTeam(ctx, account, "Sales")
	require.NoError(t, err)
	assert.Equal(t, *first.TeamID, team.ID)
}

func TestSaveBasicInfoForeignChatbotIsNotFound(t *testing.T) {
	p, _ := newTestPersister()
	ctx := context.Background()
	owner, intruder, id := uuid.New(), uuid.New(), uuid.New()

	_, _, err := p.SaveBasicInfo(ctx, owner, id, BasicInfo{Name: "Mine"})
	require.NoError(t, err)

	_, _, err = p.SaveBasicInfo(ctx, intruder, id, BasicInfo{Name: "Yours now"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveConfigurationRequiresChatbotID(t *testing.T) {
	p, _ := newTestPersister()

	err := p.SaveConfiguration(context.Background(), uuid.New(), uuid.Nil, ModelStep{AIModel: "gpt-4o"})

	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestSaveConfigurationIsIdempotentAndScoped(t *testing.T) {
	p, store := newTestPersister()
	ctx := context.Background()
	account, id := uuid.New(), uuid.New()
	_, _, err := p.SaveBasicInfo(ctx, account, id, BasicInfo{Name: "Sales Bot"})
	require.NoError(t, err)

	knowledge := KnowledgeStep{KnowledgeBase: models.NewKnowledgeBase(models.TextKnowledge{Content: "We sell widgets."})}
	require.NoError(t, p.SaveConfiguration(ctx, account, id, knowledge))

	temp := 0.4
	model := ModelStep{AIModel: "claude-3-haiku", Temperature: &temp, MaxTokens: 512}
	require.NoError(t, p.SaveConfiguration(ctx, account, id, model))
	once, err := store.Load(ctx, account, id)
	require.NoError(t, err)

	require.NoError(t, p.SaveConfiguration(ctx, account, id, model))
	twice, err := store.Load(ctx, account, id)
	require.NoError(t, err)

	once.Configuration.UpdatedAt = twice.Configuration.UpdatedAt
	assert.Equal(t, once.Configuration, twice.Configuration)
	assert.Equal(t, "We sell widgets.", twice.Configuration.KnowledgeBase.Source.(models.TextKnowledge).Content,
		"step 3 must not clobber step 2 fields")
	assert.Equal(t, "claude-3-haiku", twice.Configuration.AIModel)
}

func TestSaveConfigurationForeignAccount(t *testing.T) {
	p, _ := newTestPersister()
	ctx := context.Background()
	id := uuid.New()
	_, _, err := p.SaveBasicInfo(ctx, uuid.New(), id, BasicInfo{Name: "Sales Bot"})
	require.NoError(t, err)

	err = p.SaveConfiguration(ctx, uuid.New(), id, DesignStep{Theme: "dark"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersistWrapsStoreFailures(t *testing.T) {
	store := repository.NewMemoryStore()
	boom := errors.New("connection reset")
	p := NewPersister(failingStore{MemoryStore: store, err: boom}, store)
	ctx := context.Background()
	account, id := uuid.New(), uuid.New()

	res, err := p.Persist(ctx, account, id, BasicInfo{Name: "Sales Bot"})
	require.NoError(t, err)
	assert.True(t, res.Created)

	_, err = p.Persist(ctx, account, id, LeadFormStep{LeadFormEnabled: true})
	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, boom)
}

func TestPersistRejectsReviewStep(t *testing.T) {
	p, _ := newTestPersister()

	_, err := p.Persist(context.Background(), uuid.New(), uuid.New(), ReviewStep{})

	assert.ErrorIs(t, err, ErrUnknownStep)
}
