package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tokenomics/pkg/enums"
)

// Account is a platform identity that can own a wallet.
type Account struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Email      string            `gorm:"column:email;not null;uniqueIndex"`
	Role       enums.AccountRole `gorm:"column:role;not null"`
	ReferredBy *uuid.UUID        `gorm:"column:referred_by;type:uuid"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
