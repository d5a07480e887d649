package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatbotStatus string

const (
	ChatbotStatusDraft  ChatbotStatus = "draft"
	ChatbotStatusActive ChatbotStatus = "active"
	ChatbotStatusPaused ChatbotStatus = "paused"
)

// Chatbot is the identity half of the aggregate. Its configuration row shares
// the same id and is created and deleted together with it.
type Chatbot struct {
	ID            uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID     uuid.UUID             `gorm:"type:uuid;not null;index" json:"account_id"`
	Name          string                `gorm:"not null" json:"name"`
	Description   string                `gorm:"type:text" json:"description"`
	WebsiteURL    string                `json:"website_url"`
	TeamID        *uuid.UUID            `gorm:"type:uuid;index" json:"team_id"`
	Team          *Team                 `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Status        ChatbotStatus         `gorm:"not null;default:'draft';index" json:"status"`
	ActivatedAt   *time.Time            `json:"activated_at"`
	Configuration *ChatbotConfiguration `gorm:"foreignKey:ChatbotID;constraint:OnDelete:CASCADE" json:"configuration,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// ChatbotConfiguration holds the fields written by wizard steps 2-5. Each
// column group belongs to exactly one step.
type ChatbotConfiguration struct {
	ChatbotID uuid.UUID `gorm:"type:uuid;primaryKey" json:"chatbot_id"`

	// knowledge
	KnowledgeBase KnowledgeBase `gorm:"type:jsonb" json:"knowledge_base"`

	// model
	AIModel     string   `json:"ai_model"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`

	// design
	Theme             string                          `json:"theme"`
	InitialMessage    string                          `gorm:"type:text" json:"initial_message"`
	SuggestedMessages datatypes.JSONSlice[string]     `gorm:"type:jsonb" json:"suggested_messages"`
	DisplayName       string                          `json:"display_name"`
	FooterLinks       datatypes.JSONSlice[FooterLink] `gorm:"type:jsonb" json:"footer_links"`
	UserMessageColor  string                          `json:"user_message_color"`
	AutoOpenDelay     int                             `gorm:"default:0" json:"auto_open_delay"`
	InputPlaceholder  string                          `json:"input_placeholder"`

	// lead form
	LeadFormEnabled        bool                               `gorm:"default:false" json:"lead_form_enabled"`
	LeadFormTitle          string                             `json:"lead_form_title"`
	LeadFormDescription    string                             `gorm:"type:text" json:"lead_form_description"`
	LeadFormSuccessMessage string                             `json:"lead_form_success_message"`
	LeadFormFields         datatypes.JSONSlice[LeadFormField] `gorm:"type:jsonb" json:"lead_form_fields"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FooterLink struct {
	Text string `json:"text"`
	URL  string `json:"url" validate:"omitempty,url"`
}

type LeadFormField struct {
	Label     string `json:"label"`
	FieldName string `json:"field_name"`
	Type      string `json:"type" validate:"omitempty,oneof=text email phone textarea number"`
	Required  bool   `json:"required"`
}

type Team struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_team_account_name" json:"account_id"`
	Name      string    `gorm:"not null;uniqueIndex:idx_team_account_name" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
