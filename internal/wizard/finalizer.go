package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetk3436/chatforge/internal/metrics"
	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

type FinalizerConfig struct {
	// RetryAttempts bounds the synchronous counter increment attempts.
	RetryAttempts   int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Logger          *slog.Logger
}

// Finalizer activates a draft chatbot and counts it against the account.
//
// The status flip and the counter increment are separate writes. Activation
// goes first and is the user-visible result; the increment is retried with
// backoff and, if it still fails, handed to the reconciler.
type Finalizer struct {
	store      AggregateStore
	usage      UsageStore
	reconciler CounterReconciler
	cfg        FinalizerConfig
	logger     *slog.Logger
	now        func() time.Time
}

func NewFinalizer(store AggregateStore, usage UsageStore, cfg FinalizerConfig) *Finalizer {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Finalizer{store: store, usage: usage, cfg: cfg, logger: logger, now: time.Now}
}

// WithReconciler sets where failed counter increments are queued.
func (f *Finalizer) WithReconciler(r CounterReconciler) *Finalizer {
	f.reconciler = r
	return f
}

type FinalizeResult struct {
	// Chatbot is the aggregate after activation. It is nil when the reload
	// failed; activation itself still happened.
	Chatbot *models.Chatbot
	// Activated is true only for the draft to active transition. Retries and
	// already active or paused chatbots report false.
	Activated bool
}

// Finalize activates chatbotID. Re-finalizing a chatbot that is no longer a
// draft is a successful no-op and never touches the usage counter.
func (f *Finalizer) Finalize(ctx context.Context, accountID, chatbotID uuid.UUID) (*FinalizeResult, error) {
	if chatbotID == uuid.Nil {
		metrics.ChatbotsFinalized.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("finalize: %w", ErrPrecondition)
	}

	activated, err := f.store.Activate(ctx, accountID, chatbotID, f.now())
	if err != nil {
		metrics.ChatbotsFinalized.WithLabelValues("error").Inc()
		return nil, persistErr("activate chatbot", err)
	}

	if activated {
		metrics.ChatbotsFinalized.WithLabelValues("activated").Inc()
		f.logger.Info("Chatbot finalized", "account_id", accountID, "chatbot_id", chatbotID)
		f.countChatbot(ctx, accountID, chatbotID)
	} else {
		metrics.ChatbotsFinalized.WithLabelValues("noop").Inc()
		f.logger.Debug("Chatbot already finalized", "account_id", accountID, "chatbot_id", chatbotID)
	}

	result := &FinalizeResult{Activated: activated}
	bot, err := f.store.Load(ctx, accountID, chatbotID)
	if err != nil {
		f.logger.Warn("Failed to reload finalized chatbot", "chatbot_id", chatbotID, "error", err)
		return result, nil
	}
	result.Chatbot = bot
	return result, nil
}

// countChatbot increments chatbots_created. The request context may already
// be gone by the time a retry runs, so the retries ignore its cancellation.
func (f *Finalizer) countChatbot(ctx context.Context, accountID, chatbotID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.cfg.InitialInterval
	b.MaxInterval = f.cfg.MaxInterval
	b.MaxElapsedTime = 0

	op := func() error {
		return f.usage.IncrementChatbotsCreated(ctx, accountID)
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.cfg.RetryAttempts-1)), ctx))
	if err == nil {
		return
	}

	cerr := &FinalizeCounterError{AccountID: accountID, ChatbotID: chatbotID, Err: err}
	metrics.UsageCounterFailures.Inc()
	f.logger.Error("Usage counter increment failed", "account_id", accountID, "chatbot_id", chatbotID, "error", cerr)
	if f.reconciler != nil {
		f.reconciler.Enqueue(accountID, chatbotID)
	}
}
