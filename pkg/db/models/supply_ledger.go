package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SupplyLedgerID is the identifier of the singleton supply row.
const SupplyLedgerID = 1

// SupplyLedger is the singleton aggregate holding the conserved supply counters.
type SupplyLedger struct {
	ID                       int             `gorm:"column:id;primaryKey;autoIncrement:false"`
	TotalSupply              decimal.Decimal `gorm:"column:total_supply;type:numeric(36,6);not null"`
	UserAllocation           decimal.Decimal `gorm:"column:user_allocation;type:numeric(36,6);not null"`
	UserCirculatingRemaining decimal.Decimal `gorm:"column:user_circulating_remaining;type:numeric(36,6);not null"`
	AdminReserve             decimal.Decimal `gorm:"column:admin_reserve;type:numeric(36,6);not null"`
	CreatedAt                time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (SupplyLedger) TableName() string { return "supply_ledger" }
