package supply

import (
	"context"
	"errors"

	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages the supply ledger singleton and its audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context) (*models.SupplyLedger, error)
	Lock(ctx context.Context) (*models.SupplyLedger, error)
	Create(ctx context.Context, ledger *models.SupplyLedger) error
	UpdateCounters(ctx context.Context, remaining, reserve decimal.Decimal) error
	CreateTransfer(ctx context.Context, transfer *models.AdminSupplyTransfer) error
	ListTransfers(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.AdminSupplyTransfer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a supply repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Get returns nil without error when the ledger has not been defined.
func (r *repository) Get(ctx context.Context) (*models.SupplyLedger, error) {
	return r.find(r.db.WithContext(ctx))
}

// Lock selects the singleton row FOR UPDATE.
func (r *repository) Lock(ctx context.Context) (*models.SupplyLedger, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}))
}

func (r *repository) find(query *gorm.DB) (*models.SupplyLedger, error) {
	var ledger models.SupplyLedger
	err := query.Where("id = ?", models.SupplyLedgerID).First(&ledger).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *repository) Create(ctx context.Context, ledger *models.SupplyLedger) error {
	ledger.ID = models.SupplyLedgerID
	return r.db.WithContext(ctx).Create(ledger).Error
}

func (r *repository) UpdateCounters(ctx context.Context, remaining, reserve decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.SupplyLedger{}).
		Where("id = ?", models.SupplyLedgerID).
		Updates(map[string]any{
			"user_circulating_remaining": remaining,
			"admin_reserve":              reserve,
		}).Error
}

func (r *repository) CreateTransfer(ctx context.Context, transfer *models.AdminSupplyTransfer) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r *repository) ListTransfers(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.AdminSupplyTransfer, error) {
	query := r.db.WithContext(ctx).Model(&models.AdminSupplyTransfer{})
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var transfers []models.AdminSupplyTransfer
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}
