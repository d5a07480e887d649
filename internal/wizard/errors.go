package wizard

import (
	"errors"
	"fmt"

	"github.com/ahmetk3436/chatforge/internal/repository"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for chatbots that are absent or owned by another
	// account. The two cases are deliberately indistinguishable.
	ErrNotFound = repository.ErrNotFound
	// ErrPrecondition means a configuration step ran before step 1 assigned a
	// chatbot id. Only a misbehaving client can cause it.
	ErrPrecondition = errors.New("chatbot id not assigned: step 1 has not been committed")
	// ErrSessionNotFound is returned for unknown, expired or foreign sessions.
	ErrSessionNotFound = errors.New("wizard session not found")
	// ErrSessionBusy is returned when another next/back is in flight for the session.
	ErrSessionBusy = errors.New("wizard session is busy")
	ErrUnknownStep = errors.New("unknown wizard step")
	// ErrAlreadyFinalized rejects resuming or stepping back on a chatbot that
	// has left the draft state.
	ErrAlreadyFinalized = errors.New("chatbot is already finalized")
)

// ValidationError blocks a transition. Nothing is persisted when it is returned.
type ValidationError struct {
	Step   StepID
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("step %d: %s", e.Step, e.Reason)
	}
	return fmt.Sprintf("step %d: %s: %s", e.Step, e.Field, e.Reason)
}

// PersistenceError wraps a failed store call. Re-running the same step is safe.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// FinalizeCounterError records a usage counter increment that did not land
// after activation. It is logged and queued for reconciliation, never
// returned to the caller of Finalize.
type FinalizeCounterError struct {
	AccountID uuid.UUID
	ChatbotID uuid.UUID
	Err       error
}

func (e *FinalizeCounterError) Error() string {
	return fmt.Sprintf("increment chatbots_created for account %s (chatbot %s): %v", e.AccountID, e.ChatbotID, e.Err)
}

func (e *FinalizeCounterError) Unwrap() error {
	return e.Err
}

// persistErr keeps not-found errors as they are and wraps everything else.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return &PersistenceError{Op: op, Err: err}
}
