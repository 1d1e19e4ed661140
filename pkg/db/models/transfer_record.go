package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tokenomics/pkg/enums"
)

// TransferRecord is the audit row of a fee-bearing operation.
type TransferRecord struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	AccountID      uuid.UUID            `gorm:"column:account_id;type:uuid;not null;index"`
	CounterpartyID *uuid.UUID           `gorm:"column:counterparty_id;type:uuid"`
	Kind           enums.FeeKind        `gorm:"column:kind;not null"`
	GrossAmount    decimal.Decimal      `gorm:"column:gross_amount;type:numeric(36,6);not null"`
	FeeRate        decimal.Decimal      `gorm:"column:fee_rate;type:numeric(10,6);not null"`
	FeeAmount      decimal.Decimal      `gorm:"column:fee_amount;type:numeric(36,6);not null"`
	NetAmount      decimal.Decimal      `gorm:"column:net_amount;type:numeric(36,6);not null"`
	TokenAmount    decimal.NullDecimal  `gorm:"column:token_amount;type:numeric(36,6)"`
	Price          decimal.NullDecimal  `gorm:"column:price;type:numeric(36,12)"`
	FeeReceiverID  *uuid.UUID           `gorm:"column:fee_receiver_id;type:uuid"`
	FeeCreditError *string              `gorm:"column:fee_credit_error;type:text"`
	Destination    *string              `gorm:"column:destination;type:text"`
	Status         enums.TransferStatus `gorm:"column:status;not null"`
	ResolvedAt     *time.Time           `gorm:"column:resolved_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *TransferRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
