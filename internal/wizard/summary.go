package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/google/uuid"
)

type Section string

const (
	SectionBasicInfo Section = "basic_info"
	SectionKnowledge Section = "knowledge_base"
	SectionModel     Section = "model"
	SectionDesign    Section = "design"
	SectionLeadForm  Section = "lead_form"
)

// Step returns the wizard step that owns the section.
func (s Section) Step() StepID {
	switch s {
	case SectionBasicInfo:
		return StepBasicInfo
	case SectionKnowledge:
		return StepKnowledge
	case SectionModel:
		return StepModel
	case SectionDesign:
		return StepDesign
	case SectionLeadForm:
		return StepLeadForm
	}
	return 0
}

type SummaryItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type SectionSummary struct {
	Key      Section       `json:"key"`
	Title    string        `json:"title"`
	Complete bool          `json:"complete"`
	Missing  []string      `json:"missing,omitempty"`
	Items    []SummaryItem `json:"items"`
}

type Summary struct {
	ChatbotID uuid.UUID            `json:"chatbot_id"`
	Status    models.ChatbotStatus `json:"status"`
	Complete  bool                 `json:"complete"`
	Sections  []SectionSummary     `json:"sections"`
}

// Section returns the summary of one section.
func (s Summary) Section(key Section) (SectionSummary, bool) {
	for _, sec := range s.Sections {
		if sec.Key == key {
			return sec, true
		}
	}
	return SectionSummary{}, false
}

// FirstIncomplete returns the first incomplete section, if any.
func (s Summary) FirstIncomplete() (SectionSummary, bool) {
	for _, sec := range s.Sections {
		if !sec.Complete {
			return sec, true
		}
	}
	return SectionSummary{}, false
}

// Project builds the review rollup of bot from committed state only. It is
// recomputed on every call and has no side effects.
func Project(bot *models.Chatbot) Summary {
	if bot == nil {
		bot = &models.Chatbot{}
	}
	cfg := bot.Configuration
	if cfg == nil {
		cfg = &models.ChatbotConfiguration{}
	}

	sections := []SectionSummary{
		projectBasicInfo(bot),
		projectKnowledge(cfg),
		projectModel(cfg),
		projectDesign(cfg),
		projectLeadForm(cfg),
	}

	complete := true
	for i := range sections {
		sections[i].Complete = len(sections[i].Missing) == 0
		complete = complete && sections[i].Complete
	}
	return Summary{ChatbotID: bot.ID, Status: bot.Status, Complete: complete, Sections: sections}
}

func projectBasicInfo(bot *models.Chatbot) SectionSummary {
	sec := SectionSummary{Key: SectionBasicInfo, Title: "Basic Info"}
	if strings.TrimSpace(bot.Name) == "" {
		sec.Missing = append(sec.Missing, "name")
	}
	team := ""
	if bot.Team != nil {
		team = bot.Team.Name
	}
	sec.Items = []SummaryItem{
		{Label: "Name", Value: bot.Name},
		{Label: "Description", Value: bot.Description},
		{Label: "Website", Value: bot.WebsiteURL},
		{Label: "Team", Value: team},
	}
	return sec
}

func projectKnowledge(cfg *models.ChatbotConfiguration) SectionSummary {
	sec := SectionSummary{Key: SectionKnowledge, Title: "Knowledge Base"}

	switch src := cfg.KnowledgeBase.Source.(type) {
	case models.TextKnowledge:
		sec.Items = []SummaryItem{
			{Label: "Source", Value: "Text"},
			{Label: "Content", Value: truncate(src.Content, 120)},
		}
		if strings.TrimSpace(src.Content) == "" {
			sec.Missing = append(sec.Missing, "knowledge_base.content")
		}
	case models.URLKnowledge:
		sec.Items = []SummaryItem{
			{Label: "Source", Value: "URLs"},
			{Label: "URLs", Value: strings.Join(src.URLs, ", ")},
		}
		if len(src.URLs) == 0 {
			sec.Missing = append(sec.Missing, "knowledge_base.urls")
		}
	case models.FileKnowledge:
		names := make([]string, 0, len(src.Files))
		for _, f := range src.Files {
			names = append(names, f.Name)
		}
		sec.Items = []SummaryItem{
			{Label: "Source", Value: "Files"},
			{Label: "Files", Value: strings.Join(names, ", ")},
		}
		if len(src.Files) == 0 {
			sec.Missing = append(sec.Missing, "knowledge_base.files")
		}
	default:
		sec.Items = []SummaryItem{{Label: "Source", Value: "Not configured"}}
		sec.Missing = append(sec.Missing, "knowledge_base")
	}
	return sec
}

func projectModel(cfg *models.ChatbotConfiguration) SectionSummary {
	sec := SectionSummary{Key: SectionModel, Title: "AI Model"}

	temperature := ""
	if cfg.Temperature != nil {
		temperature = strconv.FormatFloat(*cfg.Temperature, 'f', 2, 64)
	} else {
		sec.Missing = append(sec.Missing, "temperature")
	}
	maxTokens := ""
	if cfg.MaxTokens > 0 {
		maxTokens = strconv.Itoa(cfg.MaxTokens)
	} else {
		sec.Missing = append(sec.Missing, "max_tokens")
	}
	if cfg.AIModel == "" {
		sec.Missing = append([]string{"ai_model"}, sec.Missing...)
	}

	sec.Items = []SummaryItem{
		{Label: "Model", Value: cfg.AIModel},
		{Label: "Temperature", Value: temperature},
		{Label: "Max Tokens", Value: maxTokens},
	}
	return sec
}

func projectDesign(cfg *models.ChatbotConfiguration) SectionSummary {
	sec := SectionSummary{Key: SectionDesign, Title: "Design"}
	if cfg.Theme == "" {
		sec.Missing = append(sec.Missing, "theme")
	}
	if strings.TrimSpace(cfg.InitialMessage) == "" {
		sec.Missing = append(sec.Missing, "initial_message")
	}
	if strings.TrimSpace(cfg.DisplayName) == "" {
		sec.Missing = append(sec.Missing, "display_name")
	}

	sec.Items = []SummaryItem{
		{Label: "Theme", Value: cfg.Theme},
		{Label: "Display Name", Value: cfg.DisplayName},
		{Label: "Initial Message", Value: cfg.InitialMessage},
		{Label: "Suggested Messages", Value: strconv.Itoa(len(cfg.SuggestedMessages))},
		{Label: "Footer Links", Value: strconv.Itoa(len(cfg.FooterLinks))},
		{Label: "User Message Color", Value: cfg.UserMessageColor},
		{Label: "Auto Open Delay", Value: fmt.Sprintf("%ds", cfg.AutoOpenDelay)},
		{Label: "Input Placeholder", Value: cfg.InputPlaceholder},
	}
	return sec
}

// projectLeadForm treats a disabled form as complete. An enabled form needs a
// title and at least one field, and every field needs a label and a name.
func projectLeadForm(cfg *models.ChatbotConfiguration) SectionSummary {
	sec := SectionSummary{Key: SectionLeadForm, Title: "Lead Form"}
	if !cfg.LeadFormEnabled {
		sec.Items = []SummaryItem{{Label: "Enabled", Value: "No"}}
		return sec
	}

	if strings.TrimSpace(cfg.LeadFormTitle) == "" {
		sec.Missing = append(sec.Missing, "lead_form_title")
	}
	if len(cfg.LeadFormFields) == 0 {
		sec.Missing = append(sec.Missing, "lead_form_fields")
	}
	labels := make([]string, 0, len(cfg.LeadFormFields))
	for i, field := range cfg.LeadFormFields {
		if strings.TrimSpace(field.Label) == "" {
			sec.Missing = append(sec.Missing, fmt.Sprintf("lead_form_fields[%d].label", i))
		}
		if strings.TrimSpace(field.FieldName) == "" {
			sec.Missing = append(sec.Missing, fmt.Sprintf("lead_form_fields[%d].field_name", i))
		}
		label := field.Label
		if field.Required {
			label += "*"
		}
		labels = append(labels, label)
	}

	sec.Items = []SummaryItem{
		{Label: "Enabled", Value: "Yes"},
		{Label: "Title", Value: cfg.LeadFormTitle},
		{Label: "Description", Value: cfg.LeadFormDescription},
		{Label: "Success Message", Value: cfg.LeadFormSuccessMessage},
		{Label: "Fields", Value: strings.Join(labels, ", ")},
	}
	return sec
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
