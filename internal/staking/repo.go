package staking

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaturedCursor marks the last stake of a ListMatured page. Rows sort by
// (end_time, id), so the next page starts strictly after it.
type MaturedCursor struct {
	EndTime time.Time
	ID      uuid.UUID
}

// Repository manages persistence for stakes and referral earnings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, stake *models.Stake) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Stake, error)
	Lock(ctx context.Context, id uuid.UUID) (*models.Stake, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Stake, error)
	ListMatured(ctx context.Context, now time.Time, after *MaturedCursor, limit int) ([]models.Stake, error)
	MarkSettled(ctx context.Context, id uuid.UUID, profit decimal.Decimal, settledAt time.Time) (bool, error)
	CreateReferralEarning(ctx context.Context, earning *models.ReferralEarning) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stakes repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, stake *models.Stake) error {
	return r.db.WithContext(ctx).Create(stake).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Stake, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// Lock selects the stake row FOR UPDATE.
func (r *repository) Lock(ctx context.Context, id uuid.UUID) (*models.Stake, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repository) find(query *gorm.DB, id uuid.UUID) (*models.Stake, error) {
	var stake models.Stake
	err := query.Where("id = ?", id).First(&stake).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stake, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Stake, error) {
	var stakes []models.Stake
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("start_time DESC").
		Find(&stakes).Error; err != nil {
		return nil, err
	}
	return stakes, nil
}

// ListMatured returns ACTIVE stakes whose end time has passed, earliest first.
// A non-nil cursor resumes after the given stake.
func (r *repository) ListMatured(ctx context.Context, now time.Time, after *MaturedCursor, limit int) ([]models.Stake, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", enums.StakeStatusActive, now)
	if after != nil {
		query = query.Where("(end_time > ? OR (end_time = ? AND id > ?))", after.EndTime, after.EndTime, after.ID)
	}
	query = query.
		Order("end_time ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var stakes []models.Stake
	if err := query.Find(&stakes).Error; err != nil {
		return nil, err
	}
	return stakes, nil
}

// MarkSettled flips an ACTIVE stake to COMPLETED and reports whether this call did it.
func (r *repository) MarkSettled(ctx context.Context, id uuid.UUID, profit decimal.Decimal, settledAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Stake{}).
		Where("id = ? AND status = ?", id, enums.StakeStatusActive).
		Updates(map[string]any{
			"status":     enums.StakeStatusCompleted,
			"claimed":    true,
			"profit":     profit,
			"settled_at": settledAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) CreateReferralEarning(ctx context.Context, earning *models.ReferralEarning) error {
	return r.db.WithContext(ctx).Create(earning).Error
}
