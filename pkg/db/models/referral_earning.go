package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReferralEarning links a referrer to the stake settlement that paid them.
type ReferralEarning struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ReferrerID uuid.UUID       `gorm:"column:referrer_id;type:uuid;not null;index"`
	ReferredID uuid.UUID       `gorm:"column:referred_id;type:uuid;not null"`
	StakeID    uuid.UUID       `gorm:"column:stake_id;type:uuid;not null;uniqueIndex"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(36,6);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (r *ReferralEarning) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
