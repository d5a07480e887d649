package repository

import (
	"os"
	"testing"

	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestGormStore runs against a real Postgres when CHATFORGE_TEST_DSN is set.
func TestGormStore(t *testing.T) {
	dsn := os.Getenv("CHATFORGE_TEST_DSN")
	if dsn == "" {
		t.Skip("CHATFORGE_TEST_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Account{},
		&models.UsageCounter{},
		&models.Team{},
		&models.Chatbot{},
		&models.ChatbotConfiguration{},
		&models.AuditLog{},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	runStoreContract(t, func(t *testing.T) Store { return NewGormStore(db) })
}
