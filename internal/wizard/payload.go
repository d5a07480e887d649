package wizard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// SupportedModels lists the ai_model values accepted by step 3.
var SupportedModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4-turbo",
	"gpt-3.5-turbo",
	"claude-3-5-sonnet",
	"claude-3-haiku",
	"gemini-1.5-pro",
}

// AllowedMaxTokens lists the max_tokens values accepted by step 3.
var AllowedMaxTokens = []int{256, 512, 1024, 2048, 4096}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("ai_model", func(fl validator.FieldLevel) bool {
		return contains(SupportedModels, fl.Field().String())
	})
	_ = v.RegisterValidation("max_tokens", func(fl validator.FieldLevel) bool {
		return contains(AllowedMaxTokens, int(fl.Field().Int()))
	})
	return v
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// StepPayload is the request body of one wizard step.
type StepPayload interface {
	Step() StepID
}

// ConfigPayload is a payload for steps 2-5. It names the configuration
// columns it owns and writes its values into a configuration record.
type ConfigPayload interface {
	StepPayload
	columns() []string
	apply(cfg *models.ChatbotConfiguration)
}

type BasicInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	WebsiteURL  string `json:"website_url" validate:"omitempty,url"`
	Team        string `json:"team"`
}

type KnowledgeStep struct {
	KnowledgeBase models.KnowledgeBase `json:"knowledge_base"`
}

type ModelStep struct {
	AIModel     string   `json:"ai_model" validate:"omitempty,ai_model"`
	Temperature *float64 `json:"temperature" validate:"omitempty,gte=0,lte=1"`
	MaxTokens   int      `json:"max_tokens" validate:"omitempty,max_tokens"`
}

type DesignStep struct {
	Theme             string              `json:"theme" validate:"omitempty,oneof=light dark"`
	InitialMessage    string              `json:"initial_message"`
	SuggestedMessages []string            `json:"suggested_messages"`
	DisplayName       string              `json:"display_name"`
	FooterLinks       []models.FooterLink `json:"footer_links" validate:"dive"`
	UserMessageColor  string              `json:"user_message_color" validate:"omitempty,hexcolor"`
	AutoOpenDelay     int                 `json:"auto_open_delay" validate:"gte=0"`
	InputPlaceholder  string              `json:"input_placeholder"`
}

type LeadFormStep struct {
	LeadFormEnabled        bool                   `json:"lead_form_enabled"`
	LeadFormTitle          string                 `json:"lead_form_title"`
	LeadFormDescription    string                 `json:"lead_form_description"`
	LeadFormSuccessMessage string                 `json:"lead_form_success_message"`
	LeadFormFields         []models.LeadFormField `json:"lead_form_fields" validate:"dive"`
}

// ReviewStep carries no data; submitting it finalizes the chatbot.
type ReviewStep struct{}

func (BasicInfo) Step() StepID     { return StepBasicInfo }
func (KnowledgeStep) Step() StepID { return StepKnowledge }
func (ModelStep) Step() StepID     { return StepModel }
func (DesignStep) Step() StepID    { return StepDesign }
func (LeadFormStep) Step() StepID  { return StepLeadForm }
func (ReviewStep) Step() StepID    { return StepReview }

func (KnowledgeStep) columns() []string {
	return []string{"knowledge_base"}
}

func (p KnowledgeStep) apply(cfg *models.ChatbotConfiguration) {
	cfg.KnowledgeBase = p.KnowledgeBase
}

func (ModelStep) columns() []string {
	return []string{"ai_model", "temperature", "max_tokens"}
}

func (p ModelStep) apply(cfg *models.ChatbotConfiguration) {
	cfg.AIModel = p.AIModel
	if p.Temperature != nil {
		t := *p.Temperature
		cfg.Temperature = &t
	} else {
		cfg.Temperature = nil
	}
	cfg.MaxTokens = p.MaxTokens
}

func (DesignStep) columns() []string {
	return []string{
		"theme", "initial_message", "suggested_messages", "display_name",
		"footer_links", "user_message_color", "auto_open_delay", "input_placeholder",
	}
}

func (p DesignStep) apply(cfg *models.ChatbotConfiguration) {
	cfg.Theme = p.Theme
	cfg.InitialMessage = p.InitialMessage
	cfg.SuggestedMessages = datatypes.JSONSlice[string](append([]string{}, p.SuggestedMessages...))
	cfg.DisplayName = p.DisplayName
	cfg.FooterLinks = datatypes.JSONSlice[models.FooterLink](append([]models.FooterLink{}, p.FooterLinks...))
	cfg.UserMessageColor = p.UserMessageColor
	cfg.AutoOpenDelay = p.AutoOpenDelay
	cfg.InputPlaceholder = p.InputPlaceholder
}

func (LeadFormStep) columns() []string {
	return []string{
		"lead_form_enabled", "lead_form_title", "lead_form_description",
		"lead_form_success_message", "lead_form_fields",
	}
}

func (p LeadFormStep) apply(cfg *models.ChatbotConfiguration) {
	cfg.LeadFormEnabled = p.LeadFormEnabled
	cfg.LeadFormTitle = p.LeadFormTitle
	cfg.LeadFormDescription = p.LeadFormDescription
	cfg.LeadFormSuccessMessage = p.LeadFormSuccessMessage
	cfg.LeadFormFields = datatypes.JSONSlice[models.LeadFormField](append([]models.LeadFormField{}, p.LeadFormFields...))
}

// DecodePayload parses the request body for step. Unknown fields are
// rejected, as are present values outside their domain. Absent values are
// never an error here.
func DecodePayload(step StepID, body []byte) (StepPayload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}

	var payload StepPayload
	switch step {
	case StepBasicInfo:
		var p BasicInfo
		if err := decodeStrict(step, body, &p); err != nil {
			return nil, err
		}
		p.Name = strings.TrimSpace(p.Name)
		p.Team = strings.TrimSpace(p.Team)
		payload = p
	case StepKnowledge:
		var p KnowledgeStep
		if err := decodeStrict(step, body, &p); err != nil {
			return nil, err
		}
		if err := validateKnowledge(p.KnowledgeBase); err != nil {
			return nil, err
		}
		return p, nil
	case StepModel:
		var p ModelStep
		if err := decodeStrict(step, body, &p); err != nil {
			return nil, err
		}
		payload = p
	case StepDesign:
		var p DesignStep
		if err := decodeStrict(step, body, &p); err != nil {
			return nil, err
		}
		payload = p
	case StepLeadForm:
		var p LeadFormStep
		if err := decodeStrict(step, body, &p); err != nil {
			return nil, err
		}
		payload = p
	case StepReview:
		var p ReviewStep
		if err := decodeStrict(step, body, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStep, step)
	}

	if err := validate.Struct(payload); err != nil {
		return nil, toValidationError(step, err)
	}
	return payload, nil
}

func decodeStrict(step StepID, body []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ValidationError{Step: step, Field: unknownField(err), Reason: "invalid payload: " + err.Error()}
	}
	if dec.More() {
		return &ValidationError{Step: step, Reason: "invalid payload: trailing data"}
	}
	return nil
}

func validateKnowledge(kb models.KnowledgeBase) error {
	switch src := kb.Source.(type) {
	case nil, models.TextKnowledge:
		return nil
	case models.URLKnowledge:
		for _, u := range src.URLs {
			if err := validate.Var(u, "url"); err != nil {
				return &ValidationError{Step: StepKnowledge, Field: "knowledge_base.urls", Reason: fmt.Sprintf("%q is not a valid URL", u)}
			}
		}
		return nil
	case models.FileKnowledge:
		for _, f := range src.Files {
			if err := validate.Struct(f); err != nil {
				return toValidationError(StepKnowledge, err)
			}
		}
		return nil
	default:
		return &ValidationError{Step: StepKnowledge, Field: "knowledge_base", Reason: fmt.Sprintf("unsupported source %T", src)}
	}
}

func toValidationError(step StepID, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Step: step, Field: fieldPath(fe.Namespace()), Reason: describeRule(fe)}
	}
	return &ValidationError{Step: step, Reason: err.Error()}
}

// fieldPath drops the struct name prefix from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "url":
		return "must be a valid URL"
	case "hexcolor":
		return "must be a hex color such as #1A2B3C"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "ai_model":
		return "must be one of: " + strings.Join(SupportedModels, ", ")
	case "max_tokens":
		return fmt.Sprintf("must be one of: %v", AllowedMaxTokens)
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func unknownField(err error) string {
	const prefix = "json: unknown field "
	msg := err.Error()
	if i := strings.Index(msg, prefix); i >= 0 {
		return strings.Trim(msg[i+len(prefix):], `"`)
	}
	return ""
}
