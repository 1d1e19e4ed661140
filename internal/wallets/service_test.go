package wallets

import (
	"context"
	"testing"

	"github.com/angelmondragon/tokenomics/pkg/db/dbtest"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCreditCreatesWalletLazily(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	accountID := uuid.New()

	empty, err := svc.Get(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, empty.Balance.IsZero())

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Credit(ctx, tx, accountID, enums.AssetBalance, dec("10.1234567"))
		return err
	}))
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Credit(ctx, tx, accountID, enums.AssetToken, dec("5"))
		return err
	}))

	wallet, err := svc.Get(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(dec("10.123457")), wallet.Balance.String())
	assert.True(t, wallet.TokenBalance.Equal(dec("5")))
}

func TestDebitRejectsOverdraftWithoutMutation(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	accountID := uuid.New()

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Credit(ctx, tx, accountID, enums.AssetBalance, dec("50"))
		return err
	}))

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Debit(ctx, tx, accountID, enums.AssetBalance, dec("50.000001"))
		return err
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))
	details, ok := pkgerrors.As(err).Details().(InsufficientFundsDetails)
	require.True(t, ok)
	assert.True(t, details.Available.Equal(dec("50")))

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Debit(ctx, tx, accountID, enums.AssetBalance, dec("20.5"))
		return err
	}))
	wallet, err := svc.Get(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(dec("29.5")), wallet.Balance.String())
}

func TestApplyValidation(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)

	_, err := svc.Credit(ctx, nil, uuid.New(), enums.AssetBalance, dec("1"))
	assert.Error(t, err)

	err = conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Credit(ctx, tx, uuid.New(), enums.AssetBalance, dec("-1"))
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Credit(ctx, tx, uuid.New(), enums.Asset("gold"), dec("1"))
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
