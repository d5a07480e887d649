package wizard

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type StepID int

const (
	StepBasicInfo StepID = iota + 1
	StepKnowledge
	StepModel
	StepDesign
	StepLeadForm
	StepReview
)

const (
	FirstStep = StepBasicInfo
	LastStep  = StepReview
)

func (id StepID) Valid() bool {
	return id >= FirstStep && id <= LastStep
}

// StepDefinition is one entry of the static step template.
type StepDefinition struct {
	ID   StepID `json:"id"`
	Name string `json:"name"`
}

var defaultTemplate = []StepDefinition{
	{ID: StepBasicInfo, Name: "Basic Info"},
	{ID: StepKnowledge, Name: "Knowledge Base"},
	{ID: StepModel, Name: "AI Model"},
	{ID: StepDesign, Name: "Design"},
	{ID: StepLeadForm, Name: "Lead Form"},
	{ID: StepReview, Name: "Review & Finalize"},
}

// Template returns a copy of the six wizard steps in order.
func Template() []StepDefinition {
	out := make([]StepDefinition, len(defaultTemplate))
	copy(out, defaultTemplate)
	return out
}

type Step struct {
	ID        StepID `json:"id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	Current   bool   `json:"current"`
}

// Session is the server-side state of one wizard run. It belongs to a single
// account and targets a single chatbot.
type Session struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	// ChatbotID stays uuid.Nil until step 1 commits.
	ChatbotID uuid.UUID `json:"chatbot_id"`
	// ReservedChatbotID is allocated when the session starts so a retried
	// step 1 writes to the same row instead of creating a second draft.
	ReservedChatbotID uuid.UUID `json:"reserved_chatbot_id"`
	Steps             []Step    `json:"steps"`
	Draft             Draft     `json:"draft"`
	Finalized         bool      `json:"finalized"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func NewSession(accountID uuid.UUID, template []StepDefinition, now time.Time) *Session {
	steps := make([]Step, len(template))
	for i, def := range template {
		steps[i] = Step{ID: def.ID, Name: def.Name}
	}
	if len(steps) > 0 {
		steps[0].Current = true
	}
	return &Session{
		ID:                uuid.New(),
		AccountID:         accountID,
		ReservedChatbotID: uuid.New(),
		Steps:             steps,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// CurrentStep returns the current step id, or 0 once the session is finalized.
func (s *Session) CurrentStep() StepID {
	for _, st := range s.Steps {
		if st.Current {
			return st.ID
		}
	}
	return 0
}

func (s *Session) targetChatbotID() uuid.UUID {
	if s.ChatbotID != uuid.Nil {
		return s.ChatbotID
	}
	return s.ReservedChatbotID
}

// advance marks the current step completed and moves to the next one. On the
// last step it leaves the session finalized with no current step.
func (s *Session) advance() {
	cur := s.CurrentStep()
	for i := range s.Steps {
		switch s.Steps[i].ID {
		case cur:
			s.Steps[i].Completed = true
			s.Steps[i].Current = false
		case cur + 1:
			s.Steps[i].Current = true
		}
	}
	if cur == LastStep {
		s.Finalized = true
	}
}

// back moves to the previous step and clears its completed flag. Persisted
// data is untouched. It reports true when called on the first step, which
// means the wizard is being exited.
func (s *Session) back() bool {
	cur := s.CurrentStep()
	if cur <= FirstStep {
		return true
	}
	for i := range s.Steps {
		switch s.Steps[i].ID {
		case cur:
			s.Steps[i].Completed = false
			s.Steps[i].Current = false
		case cur - 1:
			s.Steps[i].Completed = false
			s.Steps[i].Current = true
		}
	}
	return false
}

// resumeAt positions the session on step with every earlier step completed.
func (s *Session) resumeAt(step StepID) {
	for i := range s.Steps {
		s.Steps[i].Completed = s.Steps[i].ID < step
		s.Steps[i].Current = s.Steps[i].ID == step
	}
}

// CheckInvariants verifies that exactly one step is current (none once
// finalized) and that completed steps are exactly those before it.
func (s *Session) CheckInvariants() error {
	current := 0
	var cur StepID
	for _, st := range s.Steps {
		if st.Current {
			current++
			cur = st.ID
		}
	}

	if s.Finalized {
		if current != 0 {
			return fmt.Errorf("finalized session has %d current steps", current)
		}
		for _, st := range s.Steps {
			if !st.Completed {
				return fmt.Errorf("finalized session has incomplete step %d", st.ID)
			}
		}
		return nil
	}

	if current != 1 {
		return fmt.Errorf("session has %d current steps, want 1", current)
	}
	for _, st := range s.Steps {
		if want := st.ID < cur; st.Completed != want {
			return fmt.Errorf("step %d completed=%t while current step is %d", st.ID, st.Completed, cur)
		}
	}
	return nil
}
