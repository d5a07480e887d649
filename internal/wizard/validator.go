package wizard

import (
	"fmt"
	"strings"
)

// ValidateStep is the gate in front of every forward transition. Only step 1
// has a hard requirement; later steps accept partial data so progress can be
// saved, and incompleteness is reported by Project instead.
func ValidateStep(step StepID, payload StepPayload) error {
	if !step.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownStep, step)
	}
	if payload == nil || payload.Step() != step {
		return &ValidationError{Step: step, Reason: "payload does not belong to this step"}
	}

	switch p := payload.(type) {
	case BasicInfo:
		if strings.TrimSpace(p.Name) == "" {
			return &ValidationError{Step: step, Field: "name", Reason: "name is required"}
		}
	case KnowledgeStep, ModelStep, DesignStep, LeadFormStep, ReviewStep:
	default:
		return &ValidationError{Step: step, Reason: fmt.Sprintf("unsupported payload %T", payload)}
	}
	return nil
}
