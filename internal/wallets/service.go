package wallets

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service mutates wallet balances inside caller-owned transactions.
type Service interface {
	Get(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error)
	Credit(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, asset enums.Asset, amount decimal.Decimal) (*models.Wallet, error)
	Debit(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, asset enums.Asset, amount decimal.Decimal) (*models.Wallet, error)
}

type service struct {
	repo Repository
}

// InsufficientFundsDetails is attached to INSUFFICIENT_FUNDS errors.
type InsufficientFundsDetails struct {
	Asset     enums.Asset     `json:"asset"`
	Available decimal.Decimal `json:"available"`
	Requested decimal.Decimal `json:"requested"`
}

// NewService wires the wallet service with its repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallets repository required")
	}
	return &service{repo: repo}, nil
}

// Get returns the wallet for accountID; accounts that never transacted read as an empty wallet.
func (s *service) Get(ctx context.Context, accountID uuid.UUID) (*models.Wallet, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	wallet, err := s.repo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	if wallet == nil {
		return &models.Wallet{AccountID: accountID, Balance: decimal.Zero, TokenBalance: decimal.Zero}, nil
	}
	return wallet, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, asset enums.Asset, amount decimal.Decimal) (*models.Wallet, error) {
	return s.apply(ctx, tx, accountID, asset, amount, false)
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, asset enums.Asset, amount decimal.Decimal) (*models.Wallet, error) {
	return s.apply(ctx, tx, accountID, asset, amount, true)
}

func (s *service) apply(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, asset enums.Asset, amount decimal.Decimal, debit bool) (*models.Wallet, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if !asset.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid asset %q", asset))
	}
	amount = types.RoundAmount(amount)
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.LockOrCreate(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
	}
	if amount.IsZero() {
		return wallet, nil
	}

	current := wallet.Balance
	if asset == enums.AssetToken {
		current = wallet.TokenBalance
	}

	next := current.Add(amount)
	if debit {
		if current.LessThan(amount) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient balance").
				WithDetails(InsufficientFundsDetails{Asset: asset, Available: current, Requested: amount})
		}
		next = current.Sub(amount)
	}
	next = types.RoundAmount(next)

	if asset == enums.AssetToken {
		wallet.TokenBalance = next
	} else {
		wallet.Balance = next
	}
	if err := repo.UpdateBalances(ctx, wallet.ID, wallet.Balance, wallet.TokenBalance); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet")
	}
	return wallet, nil
}
