package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/ahmetk3436/chatforge/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDraft(t *testing.T, store *repository.MemoryStore, account uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, store.CreateDraft(context.Background(), &models.Chatbot{ID: id, AccountID: account, Name: "Sales Bot"}))
	return id
}

func fastFinalizer(store *repository.MemoryStore, usage UsageStore) *Finalizer {
	return NewFinalizer(store, usage, FinalizerConfig{RetryAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})
}

func chatbotsCreated(t *testing.T, store *repository.MemoryStore, account uuid.UUID) int64 {
	t.Helper()
	usage, err := store.GetUsage(context.Background(), account)
	require.NoError(t, err)
	return usage.ChatbotsCreated
}

func TestFinalizeActivatesAndCountsOnce(t *testing.T) {
	store := repository.NewMemoryStore()
	account := uuid.New()
	id := seedDraft(t, store, account)
	f := fastFinalizer(store, store)

	res, err := f.Finalize(context.Background(), account, id)
	require.NoError(t, err)
	assert.True(t, res.Activated)
	require.NotNil(t, res.Chatbot)
	assert.Equal(t, models.ChatbotStatusActive, res.Chatbot.Status)
	assert.NotNil(t, res.Chatbot.ActivatedAt)
	assert.EqualValues(t, 1, chatbotsCreated(t, store, account))

	again, err := f.Finalize(context.Background(), account, id)
	require.NoError(t, err)
	assert.False(t, again.Activated)
	assert.Equal(t, models.ChatbotStatusActive, again.Chatbot.Status)
	assert.EqualValues(t, 1, chatbotsCreated(t, store, account))
}

func TestFinalizeRetriesCounter(t *testing.T) {
	store := repository.NewMemoryStore()
	account := uuid.New()
	id := seedDraft(t, store, account)
	usage := &flakyUsage{failures: 2, inner: store}
	rec := &recordingReconciler{}

	res, err := fastFinalizer(store, usage).WithReconciler(rec).Finalize(context.Background(), account, id)

	require.NoError(t, err)
	assert.True(t, res.Activated)
	assert.Equal(t, 3, usage.calls)
	assert.EqualValues(t, 1, chatbotsCreated(t, store, account))
	assert.Empty(t, rec.pending)
}

func TestFinalizeCounterFailureIsNotFatal(t *testing.T) {
	store := repository.NewMemoryStore()
	account := uuid.New()
	id := seedDraft(t, store, account)
	usage := &flakyUsage{failures: 100, inner: store}
	rec := &recordingReconciler{}

	res, err := fastFinalizer(store, usage).WithReconciler(rec).Finalize(context.Background(), account, id)

	require.NoError(t, err)
	assert.True(t, res.Activated)
	assert.Equal(t, models.ChatbotStatusActive, res.Chatbot.Status)
	assert.Equal(t, 3, usage.calls)
	assert.EqualValues(t, 0, chatbotsCreated(t, store, account))
	assert.Equal(t, []uuid.UUID{id}, rec.pending)
}

func TestFinalizeSurvivesCancelledRequest(t *testing.T) {
	store := repository.NewMemoryStore()
	account := uuid.New()
	id := seedDraft(t, store, account)
	usage := &flakyUsage{failures: 1, inner: store}

	ctx, cancel := context.WithCancel(context.Background())
	f := fastFinalizer(store, usage)
	activated, err := store.Activate(ctx, account, id, time.Now())
	require.NoError(t, err)
	require.True(t, activated)
	cancel()

	f.countChatbot(ctx, account, id)

	assert.EqualValues(t, 1, chatbotsCreated(t, store, account))
}

func TestFinalizePausedChatbotIsNoop(t *testing.T) {
	store := repository.NewMemoryStore()
	account := uuid.New()
	id := seedDraft(t, store, account)
	f := fastFinalizer(store, store)
	ctx := context.Background()

	_, err := f.Finalize(ctx, account, id)
	require.NoError(t, err)
	require.NoError(t, store.TransitionStatus(ctx, account, id, models.ChatbotStatusActive, models.ChatbotStatusPaused))

	res, err := f.Finalize(ctx, account, id)
	require.NoError(t, err)
	assert.False(t, res.Activated)
	assert.Equal(t, models.ChatbotStatusPaused, res.Chatbot.Status)
	assert.EqualValues(t, 1, chatbotsCreated(t, store, account))
}

func TestFinalizeErrors(t *testing.T) {
	store := repository.NewMemoryStore()
	account := uuid.New()
	id := seedDraft(t, store, account)
	f := fastFinalizer(store, store)

	_, err := f.Finalize(context.Background(), account, uuid.Nil)
	assert.ErrorIs(t, err, ErrPrecondition)

	_, err = f.Finalize(context.Background(), uuid.New(), id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.EqualValues(t, 0, chatbotsCreated(t, store, account))
}
