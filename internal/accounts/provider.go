package accounts

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Provider resolves identities for authorization and payout routing.
type Provider interface {
	WithTx(tx *gorm.DB) Provider
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	IsAdmin(ctx context.Context, id uuid.UUID) (bool, error)
	FirstAdmin(ctx context.Context) (*models.Account, error)
	Referrer(ctx context.Context, id uuid.UUID) (*uuid.UUID, error)
}

type provider struct {
	repo Repository
}

// NewProvider builds an identity provider on top of the accounts repository.
func NewProvider(repo Repository) (Provider, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	return &provider{repo: repo}, nil
}

func (p *provider) WithTx(tx *gorm.DB) Provider {
	return &provider{repo: p.repo.WithTx(tx)}
}

func (p *provider) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	account, err := p.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return account, nil
}

func (p *provider) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	account, err := p.GetAccount(ctx, id)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return account.Role == enums.AccountRoleAdmin, nil
}

// FirstAdmin fails with RECEIVER_NOT_FOUND when no admin account exists.
func (p *provider) FirstAdmin(ctx context.Context) (*models.Account, error) {
	account, err := p.repo.FirstAdmin(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load admin account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeReceiverNotFound, "no admin account configured")
	}
	return account, nil
}

// Referrer returns the account that referred id, or nil when there is none.
func (p *provider) Referrer(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	account, err := p.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.ReferredBy == nil || *account.ReferredBy == uuid.Nil {
		return nil, nil
	}
	ref := *account.ReferredBy
	return &ref, nil
}
