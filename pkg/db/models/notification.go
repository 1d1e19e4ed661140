package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tokenomics/pkg/enums"
)

// Notification stores in-app notification payloads scoped to accounts.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	AccountID uuid.UUID              `gorm:"column:account_id;type:uuid;not null;index"`
	Type      enums.NotificationType `gorm:"column:type;not null"`
	Message   string                 `gorm:"column:message;type:text;not null"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
