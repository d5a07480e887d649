// Package wizard implements the six step chatbot creation flow: step
// validation, per-step persistence into the chatbot aggregate, the finalize
// transition and the review summary.
package wizard

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/ahmetk3436/chatforge/internal/events"
	"github.com/ahmetk3436/chatforge/internal/metrics"
	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/google/uuid"
)

type Config struct {
	Store     AggregateStore
	Sessions  SessionStore
	Locker    Locker
	Persister *Persister
	Finalizer *Finalizer
	Publisher events.Publisher
	// Template defaults to the six built-in steps.
	Template []StepDefinition
	Logger   *slog.Logger
}

// Wizard drives sessions through the steps. It holds no per-session state of
// its own; everything lives in the SessionStore.
type Wizard struct {
	store     AggregateStore
	sessions  SessionStore
	locker    Locker
	persister *Persister
	finalizer *Finalizer
	publisher events.Publisher
	template  []StepDefinition
	logger    *slog.Logger
	now       func() time.Time
}

func New(cfg Config) *Wizard {
	w := &Wizard{
		store:     cfg.Store,
		sessions:  cfg.Sessions,
		locker:    cfg.Locker,
		persister: cfg.Persister,
		finalizer: cfg.Finalizer,
		publisher: cfg.Publisher,
		template:  cfg.Template,
		logger:    cfg.Logger,
		now:       time.Now,
	}
	if w.template == nil {
		w.template = Template()
	}
	if w.publisher == nil {
		w.publisher = events.Nop{}
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Steps returns the step template sessions are started from.
func (w *Wizard) Steps() []StepDefinition {
	out := make([]StepDefinition, len(w.template))
	copy(out, w.template)
	return out
}

// Start opens a session. With a zero chatbotID the session starts empty on
// step 1. Otherwise it resumes the given draft: working data is pre-filled
// from the aggregate and the session lands on the first step whose section
// is incomplete, or on the review step when nothing is missing.
func (w *Wizard) Start(ctx context.Context, accountID, chatbotID uuid.UUID) (*Session, error) {
	session := NewSession(accountID, w.template, w.now())

	if chatbotID != uuid.Nil {
		bot, err := w.store.Load(ctx, accountID, chatbotID)
		if err != nil {
			return nil, persistErr("load chatbot", err)
		}
		if bot.Status != models.ChatbotStatusDraft {
			return nil, ErrAlreadyFinalized
		}
		session.ChatbotID = bot.ID
		session.ReservedChatbotID = bot.ID
		session.Draft = draftFromChatbot(bot)
		session.resumeAt(resumeStep(Project(bot)))
	}

	if err := w.sessions.Save(ctx, session); err != nil {
		return nil, persistErr("save session", err)
	}
	w.logger.Info("Wizard session started",
		"session_id", session.ID, "account_id", accountID,
		"chatbot_id", session.ChatbotID, "step", session.CurrentStep())
	return session, nil
}

func resumeStep(summary Summary) StepID {
	for _, sec := range summary.Sections {
		if sec.Key == SectionBasicInfo {
			continue
		}
		if !sec.Complete {
			return sec.Key.Step()
		}
	}
	return StepReview
}

// Get returns the session if it belongs to accountID.
func (w *Wizard) Get(ctx context.Context, accountID, sessionID uuid.UUID) (*Session, error) {
	session, err := w.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, persistErr("load session", err)
	}
	if session.AccountID != accountID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Next validates and commits the current step's payload, then advances. On
// the review step it finalizes the chatbot instead. Any error leaves the
// session on the same step. A retried Next on a finalized session returns it
// unchanged.
func (w *Wizard) Next(ctx context.Context, accountID, sessionID uuid.UUID, body []byte) (*Session, error) {
	unlock, err := w.locker.Lock(ctx, sessionID.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := w.Get(ctx, accountID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Finalized {
		return session, nil
	}

	step := session.CurrentStep()
	err = w.next(ctx, session, step, body)
	w.recordTransition(step, "next", err)
	if err != nil {
		if errors.Is(err, ErrPrecondition) || errors.Is(err, ErrNotFound) {
			w.abort(ctx, session, err)
		}
		return nil, err
	}
	return session, nil
}

func (w *Wizard) next(ctx context.Context, session *Session, step StepID, body []byte) error {
	payload, err := DecodePayload(step, body)
	if err != nil {
		return err
	}
	if err := ValidateStep(step, payload); err != nil {
		return err
	}

	if step == StepReview {
		res, err := w.finalizer.Finalize(ctx, session.AccountID, session.ChatbotID)
		if err != nil {
			return err
		}
		// Must precede the session save; a retried step 6 sees Activated=false.
		if res.Activated {
			w.publish(ctx, session, events.ChatbotActivated, step)
		}
	} else {
		target := session.ChatbotID
		if step == StepBasicInfo {
			target = session.targetChatbotID()
		}
		res, err := w.persister.Persist(ctx, session.AccountID, target, payload)
		if err != nil {
			return err
		}
		if step == StepBasicInfo {
			session.ChatbotID = res.ChatbotID
			if res.Created {
				w.publish(ctx, session, events.ChatbotDraftCreated, step)
			}
		}
		session.Draft.record(payload)
	}

	session.advance()
	session.UpdatedAt = w.now()
	if err := w.sessions.Save(ctx, session); err != nil {
		return persistErr("save session", err)
	}

	w.publish(ctx, session, events.WizardStepCompleted, step)
	return nil
}

// Back reverts the previous step's completed flag and moves to it. Persisted
// data is kept. On step 1 it exits the wizard: the session is removed, any
// draft chatbot stays, and exited is true.
func (w *Wizard) Back(ctx context.Context, accountID, sessionID uuid.UUID) (session *Session, exited bool, err error) {
	unlock, err := w.locker.Lock(ctx, sessionID.String())
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	session, err = w.Get(ctx, accountID, sessionID)
	if err != nil {
		return nil, false, err
	}
	if session.Finalized {
		return nil, false, ErrAlreadyFinalized
	}

	from := session.CurrentStep()
	if session.back() {
		if err := w.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			w.recordTransition(from, "back", err)
			return nil, false, persistErr("delete session", err)
		}
		w.recordTransition(from, "back", nil)
		w.publish(ctx, session, events.WizardCancelled, from)
		return session, true, nil
	}

	session.UpdatedAt = w.now()
	if err := w.sessions.Save(ctx, session); err != nil {
		err = persistErr("save session", err)
		w.recordTransition(from, "back", err)
		return nil, false, err
	}
	w.recordTransition(from, "back", nil)
	w.publish(ctx, session, events.WizardStepReverted, session.CurrentStep())
	return session, false, nil
}

// Cancel drops the session without touching the draft chatbot.
func (w *Wizard) Cancel(ctx context.Context, accountID, sessionID uuid.UUID) error {
	unlock, err := w.locker.Lock(ctx, sessionID.String())
	if err != nil {
		return err
	}
	defer unlock()

	session, err := w.Get(ctx, accountID, sessionID)
	if err != nil {
		return err
	}
	if err := w.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return persistErr("delete session", err)
	}
	w.publish(ctx, session, events.WizardCancelled, session.CurrentStep())
	return nil
}

// Summary projects the committed aggregate behind the session. Before step 1
// commits there is nothing stored, so every section reports incomplete.
func (w *Wizard) Summary(ctx context.Context, accountID, sessionID uuid.UUID) (Summary, error) {
	session, err := w.Get(ctx, accountID, sessionID)
	if err != nil {
		return Summary{}, err
	}
	if session.ChatbotID == uuid.Nil {
		return Project(nil), nil
	}
	bot, err := w.store.Load(ctx, accountID, session.ChatbotID)
	if err != nil {
		return Summary{}, persistErr("load chatbot", err)
	}
	return Project(bot), nil
}

// abort ends a session that can no longer make progress: its chatbot is gone
// or a configuration step ran without one.
func (w *Wizard) abort(ctx context.Context, session *Session, cause error) {
	if errors.Is(cause, ErrPrecondition) {
		w.logger.Error("Wizard session aborted on contract violation",
			"session_id", session.ID, "account_id", session.AccountID, "step", session.CurrentStep(), "error", cause)
	} else {
		w.logger.Warn("Wizard session aborted, chatbot not found",
			"session_id", session.ID, "chatbot_id", session.ChatbotID)
	}
	if err := w.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		w.logger.Error("Failed to delete aborted session", "session_id", session.ID, "error", err)
	}
}

func (w *Wizard) publish(ctx context.Context, session *Session, typ events.Type, step StepID) {
	ev := events.Event{
		Type:       typ,
		AccountID:  session.AccountID,
		ChatbotID:  session.ChatbotID,
		SessionID:  session.ID,
		Step:       int(step),
		OccurredAt: w.now(),
	}
	if err := w.publisher.Publish(ctx, ev); err != nil {
		w.logger.Warn("Failed to publish wizard event", "type", typ, "session_id", session.ID, "error", err)
	}
}

func (w *Wizard) recordTransition(step StepID, direction string, err error) {
	metrics.WizardTransitions.WithLabelValues(strconv.Itoa(int(step)), direction, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	var verr *ValidationError
	var perr *PersistenceError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrPrecondition):
		return "precondition"
	case errors.As(err, &perr):
		return "persistence_error"
	default:
		return "error"
	}
}
