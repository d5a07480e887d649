package models

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string    `gorm:"not null;uniqueIndex" json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UsageCounter is one row per account. chatbots_created only ever grows.
type UsageCounter struct {
	AccountID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"account_id"`
	ChatbotsCreated int64     `gorm:"not null;default:0" json:"chatbots_created"`
	UpdatedAt       time.Time `json:"updated_at"`
}
