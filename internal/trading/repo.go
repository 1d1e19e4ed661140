package trading

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	"github.com/angelmondragon/tokenomics/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for transfer records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.TransferRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.TransferRecord, error)
	Lock(ctx context.Context, id uuid.UUID) (*models.TransferRecord, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.TransferStatus, resolvedAt time.Time) (bool, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.TransferRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transfer record repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.TransferRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TransferRecord, error) {
	return r.find(r.db.WithContext(ctx), id)
}

func (r *repository) Lock(ctx context.Context, id uuid.UUID) (*models.TransferRecord, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repository) find(query *gorm.DB, id uuid.UUID) (*models.TransferRecord, error) {
	var record models.TransferRecord
	if err := query.Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// TransitionStatus moves a record from one status to another and reports whether this call did it.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.TransferStatus, resolvedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TransferRecord{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":      to,
			"resolved_at": resolvedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListByAccount pages records the account initiated or received, newest first.
func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.TransferRecord, error) {
	query := r.db.WithContext(ctx).Where("(account_id = ? OR counterparty_id = ?)", accountID, accountID)
	if cursor != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var records []models.TransferRecord
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
