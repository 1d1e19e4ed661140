package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet holds the fiat-like balance and token balance of exactly one account.
type Wallet struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	AccountID    uuid.UUID       `gorm:"column:account_id;type:uuid;not null;uniqueIndex"`
	Balance      decimal.Decimal `gorm:"column:balance;type:numeric(36,6);not null;default:0"`
	TokenBalance decimal.Decimal `gorm:"column:token_balance;type:numeric(36,6);not null;default:0"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Wallet) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}
