package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tokenomics/pkg/enums"
)

// FeeSetting stores the admin-editable rate for one fee kind.
type FeeSetting struct {
	Kind      enums.FeeKind   `gorm:"column:kind;primaryKey"`
	Rate      decimal.Decimal `gorm:"column:rate;type:numeric(10,6);not null"`
	Active    bool            `gorm:"column:active;not null"`
	UpdatedBy *uuid.UUID      `gorm:"column:updated_by;type:uuid"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
