package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tokenomics/pkg/enums"
)

// Stake is a fixed-term token lock that pays a reward when it matures.
type Stake struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	AccountID     uuid.UUID           `gorm:"column:account_id;type:uuid;not null;index"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(36,6);not null"`
	DurationDays  int                 `gorm:"column:duration_days;not null"`
	RewardPercent decimal.Decimal     `gorm:"column:reward_percent;type:numeric(10,4);not null"`
	StartTime     time.Time           `gorm:"column:start_time;not null"`
	EndTime       time.Time           `gorm:"column:end_time;not null;index"`
	Status        enums.StakeStatus   `gorm:"column:status;not null;index"`
	Claimed       bool                `gorm:"column:claimed;not null;default:false"`
	Profit        decimal.NullDecimal `gorm:"column:profit;type:numeric(36,6)"`
	SettledAt     *time.Time          `gorm:"column:settled_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Stake) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
