package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tokenomics/pkg/enums"
)

// LedgerEvent records an immutable transaction-history entry for an account.
type LedgerEvent struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	AccountID   uuid.UUID             `gorm:"column:account_id;type:uuid;not null;index"`
	Type        enums.LedgerEventType `gorm:"column:type;not null"`
	Asset       enums.Asset           `gorm:"column:asset;not null"`
	Amount      decimal.Decimal       `gorm:"column:amount;type:numeric(36,6);not null"`
	ReferenceID *uuid.UUID            `gorm:"column:reference_id;type:uuid"`
	Metadata    json.RawMessage       `gorm:"column:metadata"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (e *LedgerEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
