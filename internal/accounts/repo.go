package accounts

import (
	"context"
	"errors"

	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FirstAdmin(ctx context.Context) (*models.Account, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an accounts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// FindByID returns nil without error when the account does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// FirstAdmin returns the oldest admin account, or nil when none exists.
func (r *repository) FirstAdmin(ctx context.Context) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Where("role = ?", enums.AccountRoleAdmin).
		Order("created_at ASC").
		Order("id ASC").
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}
