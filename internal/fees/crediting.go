package fees

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tokenomics/internal/accounts"
	"github.com/angelmondragon/tokenomics/internal/ledger"
	"github.com/angelmondragon/tokenomics/internal/wallets"
	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreditInput describes a collected fee to route to the operator.
type CreditInput struct {
	Amount decimal.Decimal
	Kind   enums.FeeKind
	// ReceiverID overrides the default admin wallet when set.
	ReceiverID  *uuid.UUID
	ReferenceID *uuid.UUID
}

// Crediter routes collected fees into the receiver's balance.
type Crediter interface {
	CreditFee(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.Wallet, error)
}

type crediter struct {
	accounts accounts.Provider
	wallets  wallets.Service
	ledger   ledger.Service
}

// NewCrediter wires fee crediting with its collaborators.
func NewCrediter(accountsProvider accounts.Provider, walletsSvc wallets.Service, ledgerSvc ledger.Service) (Crediter, error) {
	if accountsProvider == nil {
		return nil, fmt.Errorf("accounts provider required")
	}
	if walletsSvc == nil {
		return nil, fmt.Errorf("wallets service required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &crediter{accounts: accountsProvider, wallets: walletsSvc, ledger: ledgerSvc}, nil
}

// CreditFee is a no-op returning (nil, nil) when the amount is not positive.
// It fails with RECEIVER_NOT_FOUND when no receiver account can be resolved.
func (c *crediter) CreditFee(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.Wallet, error) {
	if !input.Amount.IsPositive() {
		return nil, nil
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}

	receiverID, err := c.resolveReceiver(ctx, tx, input.ReceiverID)
	if err != nil {
		return nil, err
	}

	wallet, err := c.wallets.Credit(ctx, tx, receiverID, enums.AssetBalance, input.Amount)
	if err != nil {
		return nil, err
	}
	if _, err := c.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
		AccountID:   receiverID,
		Type:        enums.LedgerEventTypeFeeCredit,
		Asset:       enums.AssetBalance,
		Amount:      input.Amount,
		ReferenceID: input.ReferenceID,
		Metadata:    map[string]string{"kind": string(input.Kind)},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record fee credit")
	}
	return wallet, nil
}

func (c *crediter) resolveReceiver(ctx context.Context, tx *gorm.DB, explicit *uuid.UUID) (uuid.UUID, error) {
	provider := c.accounts.WithTx(tx)
	if explicit != nil {
		account, err := provider.GetAccount(ctx, *explicit)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeReceiverNotFound, err, "fee receiver not found")
			}
			return uuid.Nil, err
		}
		return account.ID, nil
	}
	admin, err := provider.FirstAdmin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return admin.ID, nil
}
