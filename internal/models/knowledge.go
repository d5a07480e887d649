package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

type KnowledgeType string

const (
	KnowledgeText  KnowledgeType = "text"
	KnowledgeURLs  KnowledgeType = "urls"
	KnowledgeFiles KnowledgeType = "files"
)

// KnowledgeSource is one of TextKnowledge, URLKnowledge or FileKnowledge.
type KnowledgeSource interface {
	Type() KnowledgeType
	knowledgeSource()
}

type TextKnowledge struct {
	Content string `json:"content"`
}

type URLKnowledge struct {
	URLs []string `json:"urls" validate:"dive,url"`
}

type FileKnowledge struct {
	Files []KnowledgeFile `json:"files" validate:"dive"`
}

type KnowledgeFile struct {
	Name     string `json:"name"`
	URL      string `json:"url,omitempty" validate:"omitempty,url"`
	Size     int64  `json:"size,omitempty" validate:"gte=0"`
	MimeType string `json:"mime_type,omitempty"`
}

func (TextKnowledge) Type() KnowledgeType { return KnowledgeText }
func (URLKnowledge) Type() KnowledgeType  { return KnowledgeURLs }
func (FileKnowledge) Type() KnowledgeType { return KnowledgeFiles }

func (TextKnowledge) knowledgeSource() {}
func (URLKnowledge) knowledgeSource()  {}
func (FileKnowledge) knowledgeSource() {}

// KnowledgeBase wraps an optional KnowledgeSource. A nil Source means the
// step was submitted without a knowledge base.
type KnowledgeBase struct {
	Source KnowledgeSource
}

func NewKnowledgeBase(src KnowledgeSource) KnowledgeBase {
	return KnowledgeBase{Source: src}
}

func (kb KnowledgeBase) IsZero() bool {
	return kb.Source == nil
}

type knowledgeEnvelope struct {
	Type    KnowledgeType   `json:"type"`
	Content *string         `json:"content,omitempty"`
	URLs    []string        `json:"urls,omitempty"`
	Files   []KnowledgeFile `json:"files,omitempty"`
}

func (kb KnowledgeBase) MarshalJSON() ([]byte, error) {
	if kb.Source == nil {
		return []byte("null"), nil
	}
	env := knowledgeEnvelope{Type: kb.Source.Type()}
	switch s := kb.Source.(type) {
	case TextKnowledge:
		env.Content = &s.Content
	case URLKnowledge:
		env.URLs = s.URLs
		if env.URLs == nil {
			env.URLs = []string{}
		}
	case FileKnowledge:
		env.Files = s.Files
		if env.Files == nil {
			env.Files = []KnowledgeFile{}
		}
	default:
		return nil, fmt.Errorf("unsupported knowledge source %T", kb.Source)
	}
	return json.Marshal(env)
}

// UnmarshalJSON rejects unknown keys and keys that belong to another variant.
func (kb *KnowledgeBase) UnmarshalJSON(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		kb.Source = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var env knowledgeEnvelope
	if err := dec.Decode(&env); err != nil {
		return fmt.Errorf("knowledge_base: %w", err)
	}

	switch env.Type {
	case KnowledgeText:
		if env.URLs != nil || env.Files != nil {
			return errors.New("knowledge_base: text source only accepts content")
		}
		content := ""
		if env.Content != nil {
			content = *env.Content
		}
		kb.Source = TextKnowledge{Content: content}
	case KnowledgeURLs:
		if env.Content != nil || env.Files != nil {
			return errors.New("knowledge_base: urls source only accepts urls")
		}
		kb.Source = URLKnowledge{URLs: env.URLs}
	case KnowledgeFiles:
		if env.Content != nil || env.URLs != nil {
			return errors.New("knowledge_base: files source only accepts files")
		}
		kb.Source = FileKnowledge{Files: env.Files}
	case "":
		return errors.New("knowledge_base: type is required")
	default:
		return fmt.Errorf("knowledge_base: unknown type %q", env.Type)
	}
	return nil
}

func (kb KnowledgeBase) Value() (driver.Value, error) {
	if kb.Source == nil {
		return nil, nil
	}
	b, err := kb.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (kb *KnowledgeBase) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		kb.Source = nil
		return nil
	case []byte:
		return kb.UnmarshalJSON(v)
	case string:
		return kb.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into KnowledgeBase", value)
	}
}
