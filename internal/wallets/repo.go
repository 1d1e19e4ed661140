package wallets

import (
	"context"
	"errors"

	"github.com/angelmondragon/tokenomics/pkg/db"
	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for wallets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByAccount(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error)
	LockOrCreate(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error)
	UpdateBalances(ctx context.Context, walletID uuid.UUID, balance, tokenBalance decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallets repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByAccount returns nil without error when the account has no wallet yet.
func (r *repository) FindByAccount(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// LockOrCreate selects the wallet row FOR UPDATE, inserting an empty wallet on first use.
func (r *repository) LockOrCreate(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error) {
	wallet, err := r.lock(ctx, accountID)
	if err != nil || wallet != nil {
		return wallet, err
	}

	wallet = &models.Wallet{
		AccountID:    accountID,
		Balance:      decimal.Zero,
		TokenBalance: decimal.Zero,
	}
	if err := r.db.WithContext(ctx).Create(wallet).Error; err != nil {
		if !db.IsUniqueViolation(err, "") {
			return nil, err
		}
		// lost the insert race; the row exists now
		return r.lock(ctx, accountID)
	}
	return wallet, nil
}

func (r *repository) lock(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ?", accountID).
		First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) UpdateBalances(ctx context.Context, walletID uuid.UUID, balance, tokenBalance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]any{
			"balance":       balance,
			"token_balance": tokenBalance,
		}).Error
}
