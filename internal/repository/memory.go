package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/google/uuid"
)

// MemoryStore keeps everything in process. Values are copied on the way in and
// out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	chatbots map[uuid.UUID]models.Chatbot
	configs  map[uuid.UUID]models.ChatbotConfiguration
	teams    map[uuid.UUID]models.Team
	usage    map[uuid.UUID]models.UsageCounter
	accounts map[uuid.UUID]models.Account
	audit    []models.AuditLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chatbots: make(map[uuid.UUID]models.Chatbot),
		configs:  make(map[uuid.UUID]models.ChatbotConfiguration),
		teams:    make(map[uuid.UUID]models.Team),
		usage:    make(map[uuid.UUID]models.UsageCounter),
		accounts: make(map[uuid.UUID]models.Account),
	}
}

func (s *MemoryStore) CreateDraft(_ context.Context, bot *models.Chatbot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.chatbots[bot.ID]; exists {
		return fmt.Errorf("%w: chatbot %s already exists", ErrConflict, bot.ID)
	}

	now := time.Now()
	if bot.Status == "" {
		bot.Status = models.ChatbotStatusDraft
	}
	bot.CreatedAt, bot.UpdatedAt = now, now

	row := *bot
	row.Team, row.Configuration = nil, nil
	s.chatbots[bot.ID] = row

	cfg := models.ChatbotConfiguration{ChatbotID: bot.ID, CreatedAt: now, UpdatedAt: now}
	s.configs[bot.ID] = cfg
	bot.Configuration = cloneConfig(cfg)
	return nil
}

func (s *MemoryStore) UpdateChatbot(_ context.Context, accountID, chatbotID uuid.UUID, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bot, ok := s.ownedLocked(accountID, chatbotID)
	if !ok {
		return ErrNotFound
	}

	for key, value := range updates {
		switch key {
		case "name":
			bot.Name = value.(string)
		case "description":
			bot.Description = value.(string)
		case "website_url":
			bot.WebsiteURL = value.(string)
		case "team_id":
			bot.TeamID = value.(*uuid.UUID)
		case "status":
			bot.Status = value.(models.ChatbotStatus)
		case "updated_at":
		default:
			return fmt.Errorf("memory store: unsupported chatbot column %q", key)
		}
	}
	bot.UpdatedAt = time.Now()
	s.chatbots[chatbotID] = bot
	return nil
}

// UpdateConfiguration copies only the listed columns from the applied values
// onto the stored row, mirroring a column-restricted SQL update.
func (s *MemoryStore) UpdateConfiguration(_ context.Context, accountID, chatbotID uuid.UUID, columns []string, apply func(*models.ChatbotConfiguration)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ownedLocked(accountID, chatbotID); !ok {
		return ErrNotFound
	}
	current, ok := s.configs[chatbotID]
	if !ok {
		return fmt.Errorf("configuration row missing for chatbot %s", chatbotID)
	}

	var values models.ChatbotConfiguration
	apply(&values)

	for _, col := range columns {
		if err := copyConfigColumn(&current, &values, col); err != nil {
			return err
		}
	}
	current.UpdatedAt = time.Now()
	s.configs[chatbotID] = *cloneConfig(current)
	return nil
}

func (s *MemoryStore) Load(_ context.Context, accountID, chatbotID uuid.UUID) (*models.Chatbot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bot, ok := s.ownedLocked(accountID, chatbotID)
	if !ok {
		return nil, ErrNotFound
	}
	if cfg, ok := s.configs[chatbotID]; ok {
		bot.Configuration = cloneConfig(cfg)
	}
	s.attachTeamLocked(&bot)
	return &bot, nil
}

func (s *MemoryStore) Activate(_ context.Context, accountID, chatbotID uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bot, ok := s.ownedLocked(accountID, chatbotID)
	if !ok {
		return false, ErrNotFound
	}
	if bot.Status != models.ChatbotStatusDraft {
		return false, nil
	}
	bot.Status = models.ChatbotStatusActive
	bot.ActivatedAt = &at
	bot.UpdatedAt = at
	s.chatbots[chatbotID] = bot
	return true, nil
}

func (s *MemoryStore) ListChatbots(_ context.Context, accountID uuid.UUID, filter ChatbotFilter) ([]models.Chatbot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bots := []models.Chatbot{}
	for _, bot := range s.chatbots {
		if bot.AccountID != accountID {
			continue
		}
		if filter.Status != "" && bot.Status != filter.Status {
			continue
		}
		s.attachTeamLocked(&bot)
		bots = append(bots, bot)
	}
	sort.Slice(bots, func(i, j int) bool {
		return bots[i].CreatedAt.After(bots[j].CreatedAt)
	})
	return bots, nil
}

func (s *MemoryStore) DeleteChatbot(_ context.Context, accountID, chatbotID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ownedLocked(accountID, chatbotID); !ok {
		return ErrNotFound
	}
	delete(s.configs, chatbotID)
	delete(s.chatbots, chatbotID)
	return nil
}

func (s *MemoryStore) TransitionStatus(_ context.Context, accountID, chatbotID uuid.UUID, from, to models.ChatbotStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bot, ok := s.ownedLocked(accountID, chatbotID)
	if !ok {
		return ErrNotFound
	}
	if bot.Status != from {
		return fmt.Errorf("chatbot is not %s: %w", from, ErrConflict)
	}
	bot.Status = to
	bot.UpdatedAt = time.Now()
	s.chatbots[chatbotID] = bot
	return nil
}

func (s *MemoryStore) FindOrCreateTeam(_ context.Context, accountID uuid.UUID, name string) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, team := range s.teams {
		if team.AccountID == accountID && team.Name == name {
			t := team
			return &t, nil
		}
	}

	now := time.Now()
	team := models.Team{ID: uuid.New(), AccountID: accountID, Name: name, CreatedAt: now, UpdatedAt: now}
	s.teams[team.ID] = team
	return &team, nil
}

func (s *MemoryStore) IncrementChatbotsCreated(_ context.Context, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter := s.usage[accountID]
	counter.AccountID = accountID
	counter.ChatbotsCreated++
	counter.UpdatedAt = time.Now()
	s.usage[accountID] = counter
	return nil
}

func (s *MemoryStore) GetUsage(_ context.Context, accountID uuid.UUID) (*models.UsageCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counter, ok := s.usage[accountID]
	if !ok {
		counter = models.UsageCounter{AccountID: accountID}
	}
	return &counter, nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Email, account.Email) {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now()
	account.CreatedAt, account.UpdatedAt = now, now
	s.accounts[account.ID] = *account
	if _, ok := s.usage[account.ID]; !ok {
		s.usage[account.ID] = models.UsageCounter{AccountID: account.ID, UpdatedAt: now}
	}
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

func (s *MemoryStore) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if strings.EqualFold(account.Email, email) {
			a := account
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	s.audit = append(s.audit, *entry)
	return nil
}

func (s *MemoryStore) ListAuditLogs(_ context.Context, accountID uuid.UUID, filter AuditFilter) ([]models.AuditLog, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page, perPage := filter.NormalizePage()

	var matched []models.AuditLog
	for i := len(s.audit) - 1; i >= 0; i-- {
		entry := s.audit[i]
		if entry.AccountID != accountID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		matched = append(matched, entry)
	}

	total := int64(len(matched))
	start := (page - 1) * perPage
	if start >= len(matched) {
		return []models.AuditLog{}, total, nil
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) ownedLocked(accountID, chatbotID uuid.UUID) (models.Chatbot, bool) {
	bot, ok := s.chatbots[chatbotID]
	if !ok || bot.AccountID != accountID {
		return models.Chatbot{}, false
	}
	return bot, true
}

func (s *MemoryStore) attachTeamLocked(bot *models.Chatbot) {
	bot.Team = nil
	if bot.TeamID == nil {
		return
	}
	if team, ok := s.teams[*bot.TeamID]; ok {
		bot.Team = &team
	}
}

func copyConfigColumn(dst, src *models.ChatbotConfiguration, column string) error {
	switch column {
	case "knowledge_base":
		dst.KnowledgeBase = src.KnowledgeBase
	case "ai_model":
		dst.AIModel = src.AIModel
	case "temperature":
		dst.Temperature = src.Temperature
	case "max_tokens":
		dst.MaxTokens = src.MaxTokens
	case "theme":
		dst.Theme = src.Theme
	case "initial_message":
		dst.InitialMessage = src.InitialMessage
	case "suggested_messages":
		dst.SuggestedMessages = src.SuggestedMessages
	case "display_name":
		dst.DisplayName = src.DisplayName
	case "footer_links":
		dst.FooterLinks = src.FooterLinks
	case "user_message_color":
		dst.UserMessageColor = src.UserMessageColor
	case "auto_open_delay":
		dst.AutoOpenDelay = src.AutoOpenDelay
	case "input_placeholder":
		dst.InputPlaceholder = src.InputPlaceholder
	case "lead_form_enabled":
		dst.LeadFormEnabled = src.LeadFormEnabled
	case "lead_form_title":
		dst.LeadFormTitle = src.LeadFormTitle
	case "lead_form_description":
		dst.LeadFormDescription = src.LeadFormDescription
	case "lead_form_success_message":
		dst.LeadFormSuccessMessage = src.LeadFormSuccessMessage
	case "lead_form_fields":
		dst.LeadFormFields = src.LeadFormFields
	default:
		return fmt.Errorf("memory store: unsupported configuration column %q", column)
	}
	return nil
}

func cloneConfig(cfg models.ChatbotConfiguration) *models.ChatbotConfiguration {
	out := cfg
	if cfg.Temperature != nil {
		t := *cfg.Temperature
		out.Temperature = &t
	}
	if cfg.SuggestedMessages != nil {
		out.SuggestedMessages = append(cfg.SuggestedMessages[:0:0], cfg.SuggestedMessages...)
	}
	if cfg.FooterLinks != nil {
		out.FooterLinks = append(cfg.FooterLinks[:0:0], cfg.FooterLinks...)
	}
	if cfg.LeadFormFields != nil {
		out.LeadFormFields = append(cfg.LeadFormFields[:0:0], cfg.LeadFormFields...)
	}
	return &out
}
