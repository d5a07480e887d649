package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CreateDraft inserts the chatbot and its empty configuration in one transaction.
func (s *GormStore) CreateDraft(ctx context.Context, bot *models.Chatbot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(bot).Error; err != nil {
			return translate(err)
		}
		cfg := models.ChatbotConfiguration{ChatbotID: bot.ID}
		if err := tx.Create(&cfg).Error; err != nil {
			return translate(err)
		}
		bot.Configuration = &cfg
		return nil
	})
}

func (s *GormStore) UpdateChatbot(ctx context.Context, accountID, chatbotID uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	res := s.db.WithContext(ctx).Model(&models.Chatbot{}).
		Where("id = ? AND account_id = ?", chatbotID, accountID).
		Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateConfiguration writes only the named columns, so fields owned by other
// wizard steps are never clobbered.
func (s *GormStore) UpdateConfiguration(ctx context.Context, accountID, chatbotID uuid.UUID, columns []string, apply func(*models.ChatbotConfiguration)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkOwner(tx, accountID, chatbotID); err != nil {
			return err
		}

		values := models.ChatbotConfiguration{ChatbotID: chatbotID}
		apply(&values)
		values.UpdatedAt = time.Now()

		res := tx.Model(&models.ChatbotConfiguration{}).
			Where("chatbot_id = ?", chatbotID).
			Select(append(append([]string{}, columns...), "updated_at")).
			Updates(&values)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("configuration row missing for chatbot %s", chatbotID)
		}
		return nil
	})
}

func (s *GormStore) Load(ctx context.Context, accountID, chatbotID uuid.UUID) (*models.Chatbot, error) {
	var bot models.Chatbot
	err := s.db.WithContext(ctx).
		Preload("Configuration").
		Preload("Team").
		Where("id = ? AND account_id = ?", chatbotID, accountID).
		First(&bot).Error
	if err != nil {
		return nil, translate(err)
	}
	return &bot, nil
}

// Activate flips draft to active. It reports false when the chatbot was not a
// draft, so callers can tell a real transition from a retry.
func (s *GormStore) Activate(ctx context.Context, accountID, chatbotID uuid.UUID, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Chatbot{}).
		Where("id = ? AND account_id = ? AND status = ?", chatbotID, accountID, models.ChatbotStatusDraft).
		Updates(map[string]interface{}{
			"status":       models.ChatbotStatusActive,
			"activated_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if err := s.checkOwner(s.db.WithContext(ctx), accountID, chatbotID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *GormStore) ListChatbots(ctx context.Context, accountID uuid.UUID, filter ChatbotFilter) ([]models.Chatbot, error) {
	query := s.db.WithContext(ctx).Preload("Team").Where("account_id = ?", accountID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var bots []models.Chatbot
	if err := query.Order("created_at DESC").Find(&bots).Error; err != nil {
		return nil, err
	}
	return bots, nil
}

func (s *GormStore) DeleteChatbot(ctx context.Context, accountID, chatbotID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkOwner(tx, accountID, chatbotID); err != nil {
			return err
		}
		if err := tx.Where("chatbot_id = ?", chatbotID).Delete(&models.ChatbotConfiguration{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND account_id = ?", chatbotID, accountID).Delete(&models.Chatbot{}).Error
	})
}

func (s *GormStore) TransitionStatus(ctx context.Context, accountID, chatbotID uuid.UUID, from, to models.ChatbotStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Chatbot{}).
		Where("id = ? AND account_id = ? AND status = ?", chatbotID, accountID, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if err := s.checkOwner(s.db.WithContext(ctx), accountID, chatbotID); err != nil {
		return err
	}
	return fmt.Errorf("chatbot is not %s: %w", from, ErrConflict)
}

func (s *GormStore) FindOrCreateTeam(ctx context.Context, accountID uuid.UUID, name string) (*models.Team, error) {
	var team models.Team
	err := s.db.WithContext(ctx).
		Where(models.Team{AccountID: accountID, Name: name}).
		FirstOrCreate(&team).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a race with a concurrent create; the row exists now.
		err = s.db.WithContext(ctx).Where("account_id = ? AND name = ?", accountID, name).First(&team).Error
	}
	if err != nil {
		return nil, translate(err)
	}
	return &team, nil
}

func (s *GormStore) IncrementChatbotsCreated(ctx context.Context, accountID uuid.UUID) error {
	now := time.Now()
	counter := models.UsageCounter{AccountID: accountID, ChatbotsCreated: 1, UpdatedAt: now}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"chatbots_created": gorm.Expr("usage_counters.chatbots_created + 1"),
			"updated_at":       now,
		}),
	}).Create(&counter).Error
}

func (s *GormStore) GetUsage(ctx context.Context, accountID uuid.UUID) (*models.UsageCounter, error) {
	var counter models.UsageCounter
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UsageCounter{AccountID: accountID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &counter, nil
}

func (s *GormStore) CreateAccount(ctx context.Context, account *models.Account) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return translate(err)
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UsageCounter{AccountID: account.ID}).Error
	})
}

func (s *GormStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (s *GormStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (s *GormStore) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) ListAuditLogs(ctx context.Context, accountID uuid.UUID, filter AuditFilter) ([]models.AuditLog, int64, error) {
	page, perPage := filter.NormalizePage()

	query := s.db.WithContext(ctx).Model(&models.AuditLog{}).Where("account_id = ?", accountID)
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AuditLog
	if err := query.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) checkOwner(tx *gorm.DB, accountID, chatbotID uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.Chatbot{}).
		Where("id = ? AND account_id = ?", chatbotID, accountID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}
