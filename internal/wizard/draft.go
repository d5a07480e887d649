package wizard

import "github.com/ahmetk3436/chatforge/internal/models"

// Draft is the wizard-local copy of the last committed payload of each step.
// It pre-fills the form when a step is revisited or a session is resumed.
type Draft struct {
	BasicInfo *BasicInfo     `json:"basic_info,omitempty"`
	Knowledge *KnowledgeStep `json:"knowledge,omitempty"`
	Model     *ModelStep     `json:"model,omitempty"`
	Design    *DesignStep    `json:"design,omitempty"`
	LeadForm  *LeadFormStep  `json:"lead_form,omitempty"`
}

func (d *Draft) record(payload StepPayload) {
	switch p := payload.(type) {
	case BasicInfo:
		d.BasicInfo = &p
	case KnowledgeStep:
		d.Knowledge = &p
	case ModelStep:
		d.Model = &p
	case DesignStep:
		d.Design = &p
	case LeadFormStep:
		d.LeadForm = &p
	}
}

func draftFromChatbot(bot *models.Chatbot) Draft {
	info := BasicInfo{
		Name:        bot.Name,
		Description: bot.Description,
		WebsiteURL:  bot.WebsiteURL,
	}
	if bot.Team != nil {
		info.Team = bot.Team.Name
	}
	d := Draft{BasicInfo: &info}

	cfg := bot.Configuration
	if cfg == nil {
		return d
	}

	d.Knowledge = &KnowledgeStep{KnowledgeBase: cfg.KnowledgeBase}
	d.Model = &ModelStep{AIModel: cfg.AIModel, Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
	d.Design = &DesignStep{
		Theme:             cfg.Theme,
		InitialMessage:    cfg.InitialMessage,
		SuggestedMessages: []string(cfg.SuggestedMessages),
		DisplayName:       cfg.DisplayName,
		FooterLinks:       []models.FooterLink(cfg.FooterLinks),
		UserMessageColor:  cfg.UserMessageColor,
		AutoOpenDelay:     cfg.AutoOpenDelay,
		InputPlaceholder:  cfg.InputPlaceholder,
	}
	d.LeadForm = &LeadFormStep{
		LeadFormEnabled:        cfg.LeadFormEnabled,
		LeadFormTitle:          cfg.LeadFormTitle,
		LeadFormDescription:    cfg.LeadFormDescription,
		LeadFormSuccessMessage: cfg.LeadFormSuccessMessage,
		LeadFormFields:         []models.LeadFormField(cfg.LeadFormFields),
	}
	return d
}
