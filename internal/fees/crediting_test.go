package fees

import (
	"context"
	"testing"

	"github.com/angelmondragon/tokenomics/internal/accounts"
	"github.com/angelmondragon/tokenomics/internal/ledger"
	"github.com/angelmondragon/tokenomics/internal/wallets"
	"github.com/angelmondragon/tokenomics/pkg/db/dbtest"
	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type creditFixture struct {
	conn     *gorm.DB
	accounts accounts.Repository
	wallets  wallets.Service
	crediter Crediter
}

func newCreditFixture(t *testing.T) creditFixture {
	t.Helper()
	conn := dbtest.Open(t)
	accountsRepo := accounts.NewRepository(conn)
	provider, err := accounts.NewProvider(accountsRepo)
	require.NoError(t, err)
	walletsSvc, err := wallets.NewService(wallets.NewRepository(conn))
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	crediter, err := NewCrediter(provider, walletsSvc, ledgerSvc)
	require.NoError(t, err)
	return creditFixture{conn: conn, accounts: accountsRepo, wallets: walletsSvc, crediter: crediter}
}

func TestCreditFeeRoutesToFirstAdmin(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture(t)
	admin := &models.Account{Email: "ops@test", Role: enums.AccountRoleAdmin}
	require.NoError(t, f.accounts.Create(ctx, admin))

	var credited *models.Wallet
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		credited, err = f.crediter.CreditFee(ctx, tx, CreditInput{Amount: dec("1.5"), Kind: enums.FeeKindBuy})
		return err
	}))
	require.NotNil(t, credited)
	assert.Equal(t, admin.ID, credited.AccountID)

	wallet, err := f.wallets.Get(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(dec("1.5")))

	var events []models.LedgerEvent
	require.NoError(t, f.conn.Where("account_id = ?", admin.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.LedgerEventTypeFeeCredit, events[0].Type)
}

func TestCreditFeeExplicitReceiver(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture(t)
	receiver := &models.Account{Email: "treasury@test", Role: enums.AccountRoleUser}
	require.NoError(t, f.accounts.Create(ctx, receiver))

	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.crediter.CreditFee(ctx, tx, CreditInput{Amount: dec("2"), Kind: enums.FeeKindTransfer, ReceiverID: &receiver.ID})
		return err
	}))
	wallet, err := f.wallets.Get(ctx, receiver.ID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(dec("2")))

	missing := uuid.New()
	err = f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.crediter.CreditFee(ctx, tx, CreditInput{Amount: dec("2"), ReceiverID: &missing})
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeReceiverNotFound))
}

func TestCreditFeeWithoutAdminFails(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture(t)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.crediter.CreditFee(ctx, tx, CreditInput{Amount: dec("1"), Kind: enums.FeeKindSell})
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeReceiverNotFound))
}

func TestCreditFeeNoopForNonPositive(t *testing.T) {
	f := newCreditFixture(t)
	for _, amount := range []decimal.Decimal{decimal.Zero, dec("-3")} {
		wallet, err := f.crediter.CreditFee(context.Background(), nil, CreditInput{Amount: amount})
		require.NoError(t, err)
		assert.Nil(t, wallet)
	}
}
