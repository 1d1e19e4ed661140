package ledger

import (
	"context"

	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for ledger events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.LedgerEvent) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LedgerEvent, error)
	ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.LedgerEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.LedgerEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByAccount pages newest first using a (created_at, id) keyset.
func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LedgerEvent, error) {
	query := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var events []models.LedgerEvent
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	if err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
