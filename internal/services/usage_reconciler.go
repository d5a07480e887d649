package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetk3436/chatforge/internal/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

type UsageIncrementer interface {
	IncrementChatbotsCreated(ctx context.Context, accountID uuid.UUID) error
}

type pendingIncrement struct {
	accountID uuid.UUID
	attempts  int
	nextTry   time.Time
}

// UsageReconciler retries chatbots_created increments that failed during
// finalize. Entries are keyed by chatbot id, so enqueueing the same chatbot
// twice still counts it once.
type UsageReconciler struct {
	usage    UsageIncrementer
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	pending map[uuid.UUID]*pendingIncrement
	backoff *backoff.ExponentialBackOff
	now     func() time.Time
}

func NewUsageReconciler(usage UsageIncrementer, interval time.Duration) *UsageReconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = 10 * interval
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	return &UsageReconciler{
		usage:    usage,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		pending:  make(map[uuid.UUID]*pendingIncrement),
		backoff:  b,
		now:      time.Now,
	}
}

// Enqueue schedules an increment for accountID on behalf of chatbotID.
func (r *UsageReconciler) Enqueue(accountID, chatbotID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[chatbotID]; ok {
		return
	}
	r.pending[chatbotID] = &pendingIncrement{accountID: accountID, nextTry: r.now()}
	metrics.UsageReconcilePending.Set(float64(len(r.pending)))
	slog.Warn("Usage increment queued for reconciliation", "account_id", accountID, "chatbot_id", chatbotID)
}

func (r *UsageReconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *UsageReconciler) Start() {
	go r.loop()
	slog.Info("Usage reconciler started", "interval", r.interval)
}

// Stop ends the loop after one last reconcile pass.
func (r *UsageReconciler) Stop() {
	close(r.stop)
	<-r.done
	if n := r.Pending(); n > 0 {
		slog.Error("Usage reconciler stopped with pending increments", "pending", n)
	}
	slog.Info("Usage reconciler stopped")
}

func (r *UsageReconciler) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.ReconcileOnce(context.Background())
		case <-r.stop:
			r.ReconcileOnce(context.Background())
			return
		}
	}
}

// ReconcileOnce attempts every due entry once and drops the ones that land.
func (r *UsageReconciler) ReconcileOnce(ctx context.Context) {
	now := r.now()

	r.mu.Lock()
	due := make(map[uuid.UUID]pendingIncrement)
	for chatbotID, p := range r.pending {
		if !now.Before(p.nextTry) {
			due[chatbotID] = *p
		}
	}
	r.mu.Unlock()

	for chatbotID, p := range due {
		err := r.usage.IncrementChatbotsCreated(ctx, p.accountID)

		r.mu.Lock()
		if err == nil {
			delete(r.pending, chatbotID)
			slog.Info("Usage increment reconciled", "account_id", p.accountID, "chatbot_id", chatbotID, "attempts", p.attempts+1)
		} else if entry, ok := r.pending[chatbotID]; ok {
			entry.attempts++
			entry.nextTry = now.Add(r.delay(entry.attempts))
			slog.Error("Usage increment reconcile failed",
				"account_id", p.accountID, "chatbot_id", chatbotID, "attempts", entry.attempts, "error", err)
		}
		metrics.UsageReconcilePending.Set(float64(len(r.pending)))
		r.mu.Unlock()
	}
}

// delay grows exponentially with the attempt count, capped at MaxInterval.
func (r *UsageReconciler) delay(attempts int) time.Duration {
	r.backoff.Reset()
	var d time.Duration
	for i := 0; i < attempts; i++ {
		d = r.backoff.NextBackOff()
	}
	return d
}
