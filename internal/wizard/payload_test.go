package wizard

import (
	"errors"
	"testing"

	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayloadAcceptsValidBodies(t *testing.T) {
	tests := []struct {
		name string
		step StepID
		body string
		want StepPayload
	}{
		{
			name: "basic info trims name and team",
			step: StepBasicInfo,
			body: `{"name":"  Sales Bot ","website_url":"https://example.com","team":" Support "}`,
			want: BasicInfo{Name: "Sales Bot", WebsiteURL: "https://example.com", Team: "Support"},
		},
		{
			name: "empty body is an empty payload",
			step: StepDesign,
			body: "",
			want: DesignStep{},
		},
		{
			name: "text knowledge",
			step: StepKnowledge,
			body: `{"knowledge_base":{"type":"text","content":"We sell widgets."}}`,
			want: KnowledgeStep{KnowledgeBase: models.NewKnowledgeBase(models.TextKnowledge{Content: "We sell widgets."})},
		},
		{
			name: "review takes no fields",
			step: StepReview,
			body: `{}`,
			want: ReviewStep{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload(tt.step, []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePayloadModel(t *testing.T) {
	got, err := DecodePayload(StepModel, []byte(`{"ai_model":"gpt-4o","temperature":0.7,"max_tokens":1024}`))
	require.NoError(t, err)

	model, ok := got.(ModelStep)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", model.AIModel)
	require.NotNil(t, model.Temperature)
	assert.InDelta(t, 0.7, *model.Temperature, 1e-9)
	assert.Equal(t, 1024, model.MaxTokens)
}

func TestDecodePayloadRejects(t *testing.T) {
	tests := []struct {
		name  string
		step  StepID
		body  string
		field string
	}{
		{name: "field owned by another step", step: StepBasicInfo, body: `{"name":"x","theme":"dark"}`, field: "theme"},
		{name: "unknown field", step: StepModel, body: `{"model":"gpt-4o"}`, field: "model"},
		{name: "invalid website", step: StepBasicInfo, body: `{"name":"x","website_url":"not a url"}`, field: "website_url"},
		{name: "unsupported model", step: StepModel, body: `{"ai_model":"gpt-2"}`, field: "ai_model"},
		{name: "temperature above range", step: StepModel, body: `{"temperature":1.5}`, field: "temperature"},
		{name: "negative temperature", step: StepModel, body: `{"temperature":-0.1}`, field: "temperature"},
		{name: "max tokens not allowed", step: StepModel, body: `{"max_tokens":1000}`, field: "max_tokens"},
		{name: "theme", step: StepDesign, body: `{"theme":"blue"}`, field: "theme"},
		{name: "color", step: StepDesign, body: `{"user_message_color":"red"}`, field: "user_message_color"},
		{name: "negative delay", step: StepDesign, body: `{"auto_open_delay":-1}`, field: "auto_open_delay"},
		{name: "footer link url", step: StepDesign, body: `{"footer_links":[{"text":"Docs","url":"nope"}]}`, field: "footer_links[0].url"},
		{name: "lead field type", step: StepLeadForm, body: `{"lead_form_fields":[{"label":"Age","field_name":"age","type":"date"}]}`, field: "lead_form_fields[0].type"},
		{name: "knowledge url", step: StepKnowledge, body: `{"knowledge_base":{"type":"urls","urls":["ftp//bad"]}}`, field: "knowledge_base.urls"},
		{name: "knowledge unknown type", step: StepKnowledge, body: `{"knowledge_base":{"type":"video"}}`},
		{name: "knowledge mixed variant", step: StepKnowledge, body: `{"knowledge_base":{"type":"text","urls":["https://a.io"]}}`},
		{name: "review with data", step: StepReview, body: `{"confirm":true}`, field: "confirm"},
		{name: "trailing data", step: StepModel, body: `{} {}`},
		{name: "not json", step: StepDesign, body: `theme=dark`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePayload(tt.step, []byte(tt.body))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "want ValidationError, got %v", err)
			assert.Equal(t, tt.step, verr.Step)
			if tt.field != "" {
				assert.Equal(t, tt.field, verr.Field)
			}
		})
	}
}

func TestDecodePayloadEmptyNameIsNotADecodeError(t *testing.T) {
	// Emptiness is the validator's call, not the decoder's.
	got, err := DecodePayload(StepBasicInfo, []byte(`{"name":""}`))
	require.NoError(t, err)
	assert.Equal(t, BasicInfo{}, got)
}

func TestDecodePayloadUnknownStep(t *testing.T) {
	_, err := DecodePayload(9, []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownStep)
}
