package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AdminSupplyTransfer is the immutable audit row of a reserve to circulating move.
type AdminSupplyTransfer struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	AdminID           uuid.UUID       `gorm:"column:admin_id;type:uuid;not null"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(36,6);not null"`
	ReserveBefore     decimal.Decimal `gorm:"column:reserve_before;type:numeric(36,6);not null"`
	ReserveAfter      decimal.Decimal `gorm:"column:reserve_after;type:numeric(36,6);not null"`
	CirculatingBefore decimal.Decimal `gorm:"column:circulating_before;type:numeric(36,6);not null"`
	CirculatingAfter  decimal.Decimal `gorm:"column:circulating_after;type:numeric(36,6);not null"`
	Reason            string          `gorm:"column:reason;type:text"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (t *AdminSupplyTransfer) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
