package staking

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/tokenomics/internal/accounts"
	"github.com/angelmondragon/tokenomics/internal/ledger"
	"github.com/angelmondragon/tokenomics/internal/pricing"
	"github.com/angelmondragon/tokenomics/internal/supply"
	"github.com/angelmondragon/tokenomics/internal/wallets"
	"github.com/angelmondragon/tokenomics/pkg/config"
	"github.com/angelmondragon/tokenomics/pkg/db"
	"github.com/angelmondragon/tokenomics/pkg/db/dbtest"
	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/logger"
	"github.com/angelmondragon/tokenomics/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentNotification struct {
	accountID uuid.UUID
	kind      enums.NotificationType
	message   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, accountID uuid.UUID, kind enums.NotificationType, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{accountID: accountID, kind: kind, message: message})
	return nil
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	repo     Repository
	accounts accounts.Repository
	wallets  wallets.Service
	supply   supply.Service
	notifier *recordingNotifier
	registry *prometheus.Registry
	logg     *logger.Logger
	clock    time.Time
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, dbtest.Open(t))
}

func newFixtureOn(t *testing.T, conn *gorm.DB) *fixture {
	t.Helper()
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	registry := prometheus.NewRegistry()
	settlementMetrics := metrics.NewSettlementMetrics(registry)
	runner := db.NewFromConn(conn)

	accountsRepo := accounts.NewRepository(conn)
	provider, err := accounts.NewProvider(accountsRepo)
	require.NoError(t, err)
	walletSvc, err := wallets.NewService(wallets.NewRepository(conn))
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)

	supplyRepo := supply.NewRepository(conn)
	oracle, err := pricing.NewOracle(pricing.OracleParams{
		Supply: supplyRepo,
		Tokenomics: config.TokenomicsConfig{
			BasePrice:             dec("0.001"),
			TotalUserAllocation:   dec("2000000"),
			MaxInflationFactor:    dec("1000"),
			LowSupplyAlertPercent: dec("90"),
		},
		Logger: logg,
	})
	require.NoError(t, err)
	supplySvc, err := supply.NewService(supply.ServiceParams{
		Repository: supplyRepo,
		DB:         runner,
		Accounts:   provider,
		Ledger:     ledgerSvc,
		Oracle:     oracle,
		Metrics:    settlementMetrics,
		Logger:     logg,
	})
	require.NoError(t, err)
	_, err = supplySvc.Define(ctx, dec("10000000"), dec("2000000"))
	require.NoError(t, err)

	f := &fixture{
		conn:     conn,
		repo:     NewRepository(conn),
		accounts: accountsRepo,
		wallets:  walletSvc,
		supply:   supplySvc,
		notifier: &recordingNotifier{},
		registry: registry,
		logg:     logg,
		clock:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Repository:        f.repo,
		DB:                runner,
		Accounts:          provider,
		Wallets:           walletSvc,
		Supply:            supplySvc,
		Ledger:            ledgerSvc,
		Notifier:          f.notifier,
		Metrics:           settlementMetrics,
		Logger:            logg,
		ReferralBonusRate: dec("0.10"),
	})
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return f.clock }
	f.svc = svc
	return f
}

func (f *fixture) account(t *testing.T, email string, referrer *uuid.UUID, tokens string) *models.Account {
	t.Helper()
	ctx := context.Background()
	account := &models.Account{Email: email, Role: enums.AccountRoleUser, ReferredBy: referrer}
	require.NoError(t, f.accounts.Create(ctx, account))
	if tokens != "" {
		require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
			_, err := f.wallets.Credit(ctx, tx, account.ID, enums.AssetToken, dec(tokens))
			return err
		}))
	}
	return account
}

func (f *fixture) tokens(t *testing.T, accountID uuid.UUID) decimal.Decimal {
	t.Helper()
	wallet, err := f.wallets.Get(context.Background(), accountID)
	require.NoError(t, err)
	return wallet.TokenBalance
}

func (f *fixture) remaining(t *testing.T) decimal.Decimal {
	t.Helper()
	status, err := f.supply.Status(context.Background())
	require.NoError(t, err)
	return status.UserCirculatingRemaining
}

func (f *fixture) openMatured(t *testing.T, accountID uuid.UUID, amount, reward string) *models.Stake {
	t.Helper()
	stake, err := f.svc.OpenStake(context.Background(), OpenStakeInput{
		AccountID:     accountID,
		Amount:        dec(amount),
		DurationDays:  30,
		RewardPercent: dec(reward),
	})
	require.NoError(t, err)
	return stake
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func outcomeCount(t *testing.T, registry *prometheus.Registry, outcome string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "stake_settlements_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestOpenStakeDebitsTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.account(t, "staker@test", nil, "1500")

	stake := f.openMatured(t, user.ID, "1000", "20")
	assert.Equal(t, enums.StakeStatusActive, stake.Status)
	assert.False(t, stake.Claimed)
	assert.Equal(t, f.clock.Add(30*24*time.Hour), stake.EndTime)
	assert.True(t, f.tokens(t, user.ID).Equal(dec("500")))

	stakes, err := f.svc.ListStakes(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, stakes, 1)
	assert.Equal(t, stake.ID, stakes[0].ID)

	_, err = f.svc.OpenStake(ctx, OpenStakeInput{AccountID: user.ID, Amount: dec("501"), DurationDays: 30, RewardPercent: dec("5")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))
	assert.True(t, f.tokens(t, user.ID).Equal(dec("500")))
}

func TestOpenStakeValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.account(t, "staker@test", nil, "100")

	cases := []OpenStakeInput{
		{AccountID: uuid.Nil, Amount: dec("1"), DurationDays: 1, RewardPercent: dec("1")},
		{AccountID: user.ID, Amount: dec("0"), DurationDays: 1, RewardPercent: dec("1")},
		{AccountID: user.ID, Amount: dec("-5"), DurationDays: 1, RewardPercent: dec("1")},
		{AccountID: user.ID, Amount: dec("1"), DurationDays: 0, RewardPercent: dec("1")},
		{AccountID: user.ID, Amount: dec("1"), DurationDays: maxDurationDays + 1, RewardPercent: dec("1")},
		{AccountID: user.ID, Amount: dec("1"), DurationDays: 1, RewardPercent: dec("-1")},
		{AccountID: user.ID, Amount: dec("1"), DurationDays: 1, RewardPercent: dec("1000.01")},
	}
	for _, input := range cases {
		_, err := f.svc.OpenStake(ctx, input)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%+v", input)
	}
	assert.True(t, f.tokens(t, user.ID).Equal(dec("100")))
}

func TestSettleWithReferrer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	referrer := f.account(t, "referrer@test", nil, "")
	user := f.account(t, "staker@test", &referrer.ID, "1000")
	stake := f.openMatured(t, user.ID, "1000", "20")
	f.advance(31 * 24 * time.Hour)

	result, err := f.svc.Settle(ctx, stake.ID)
	require.NoError(t, err)
	assert.True(t, result.Profit.Equal(dec("200")))
	assert.True(t, result.TotalPayout.Equal(dec("1200")))
	require.NotNil(t, result.ReferrerID)
	assert.Equal(t, referrer.ID, *result.ReferrerID)
	assert.True(t, result.ReferrerBonus.Equal(dec("20")))
	assert.True(t, result.SupplyConsumed.Equal(dec("220")))
	assert.True(t, result.CirculatingRemaining.Equal(dec("1999780")))

	assert.True(t, f.tokens(t, user.ID).Equal(dec("1200")))
	assert.True(t, f.tokens(t, referrer.ID).Equal(dec("20")))
	assert.True(t, f.remaining(t).Equal(dec("1999780")))

	settled, err := f.repo.FindByID(ctx, stake.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.StakeStatusCompleted, settled.Status)
	assert.True(t, settled.Claimed)
	require.True(t, settled.Profit.Valid)
	assert.True(t, settled.Profit.Decimal.Equal(dec("200")))
	require.NotNil(t, settled.SettledAt)

	var earnings []models.ReferralEarning
	require.NoError(t, f.conn.Where("stake_id = ?", stake.ID).Find(&earnings).Error)
	require.Len(t, earnings, 1)
	assert.True(t, earnings[0].Amount.Equal(dec("20")))

	var events []models.LedgerEvent
	require.NoError(t, f.conn.Where("reference_id = ?", stake.ID).Order("created_at ASC").Find(&events).Error)
	types := map[enums.LedgerEventType]int{}
	for _, event := range events {
		types[event.Type]++
	}
	assert.Equal(t, map[enums.LedgerEventType]int{
		enums.LedgerEventTypeStakeOpened:   1,
		enums.LedgerEventTypeStakePayout:   1,
		enums.LedgerEventTypeReferralBonus: 1,
	}, types)

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, user.ID, f.notifier.sent[0].accountID)
	assert.Equal(t, enums.NotificationTypeStakeSettled, f.notifier.sent[0].kind)
	assert.Equal(t, referrer.ID, f.notifier.sent[1].accountID)
	assert.Equal(t, enums.NotificationTypeReferralBonus, f.notifier.sent[1].kind)

	assert.Equal(t, 1.0, outcomeCount(t, f.registry, metrics.OutcomeSettled))
}

func TestSettleDefersWhenSupplyIsShort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.account(t, "staker@test", nil, "1000")
	stake := f.openMatured(t, user.ID, "1000", "15")
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.supply.DebitCirculating(ctx, tx, dec("1999900"))
		return err
	}))
	f.advance(31 * 24 * time.Hour)

	_, err := f.svc.Settle(ctx, stake.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientUserSupply))
	details, ok := pkgerrors.As(err).Details().(supply.InsufficientDetails)
	require.True(t, ok)
	assert.True(t, details.Available.Equal(dec("100")))
	assert.True(t, details.Requested.Equal(dec("150")))

	pending, err := f.repo.FindByID(ctx, stake.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.StakeStatusActive, pending.Status)
	assert.False(t, pending.Claimed)
	assert.True(t, f.tokens(t, user.ID).IsZero())
	assert.True(t, f.remaining(t).Equal(dec("100")))
	assert.Empty(t, f.notifier.sent)
	assert.Equal(t, 1.0, outcomeCount(t, f.registry, metrics.OutcomeDeferred))

	// replenishing the pool lets the same stake settle on the next attempt
	admin := &models.Account{Email: "admin@test", Role: enums.AccountRoleAdmin}
	require.NoError(t, f.accounts.Create(ctx, admin))
	_, err = f.supply.TransferReserveToCirculating(ctx, supply.TransferInput{AdminID: admin.ID, Amount: dec("50")})
	require.NoError(t, err)

	result, err := f.svc.Settle(ctx, stake.ID)
	require.NoError(t, err)
	assert.True(t, result.TotalPayout.Equal(dec("1150")))
	assert.True(t, f.remaining(t).IsZero())
}

func TestSettleReferralShortfallDefersWholeSettlement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	referrer := f.account(t, "referrer@test", nil, "")
	user := f.account(t, "staker@test", &referrer.ID, "1000")
	stake := f.openMatured(t, user.ID, "1000", "20")
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.supply.DebitCirculating(ctx, tx, dec("1999790"))
		return err
	}))
	f.advance(31 * 24 * time.Hour)

	_, err := f.svc.Settle(ctx, stake.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientUserSupply))
	assert.True(t, f.tokens(t, user.ID).IsZero())
	assert.True(t, f.tokens(t, referrer.ID).IsZero())
	assert.True(t, f.remaining(t).Equal(dec("210")))
}

func TestSettleRejectsImmatureAndRepeatedSettlement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.account(t, "staker@test", nil, "1000")
	stake := f.openMatured(t, user.ID, "1000", "10")

	_, err := f.svc.Settle(ctx, stake.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.True(t, f.tokens(t, user.ID).IsZero())

	f.advance(30 * 24 * time.Hour)
	_, err = f.svc.Settle(ctx, stake.ID)
	require.NoError(t, err, "a stake settles exactly at its end time")

	_, err = f.svc.Settle(ctx, stake.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadySettled))
	assert.True(t, f.tokens(t, user.ID).Equal(dec("1100")))
	assert.True(t, f.remaining(t).Equal(dec("1999900")))

	_, err = f.svc.Settle(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.svc.Settle(ctx, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSettleWithDanglingReferrerPaysStaker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	missing := uuid.New()
	user := f.account(t, "staker@test", &missing, "1000")
	stake := f.openMatured(t, user.ID, "1000", "20")
	f.advance(31 * 24 * time.Hour)

	result, err := f.svc.Settle(ctx, stake.ID)
	require.NoError(t, err)
	assert.Nil(t, result.ReferrerID)
	assert.True(t, result.ReferrerBonus.IsZero())
	assert.True(t, result.SupplyConsumed.Equal(dec("200")))
	assert.True(t, f.tokens(t, user.ID).Equal(dec("1200")))
	assert.True(t, f.remaining(t).Equal(dec("1999800")))
	require.Len(t, f.notifier.sent, 1)
}

func TestSettleReferralFailureKeepsStakerPayout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	referrer := f.account(t, "referrer@test", nil, "")
	user := f.account(t, "staker@test", &referrer.ID, "1000")
	stake := f.openMatured(t, user.ID, "1000", "20")
	// a pre-existing earning for this stake makes the bonus insert fail
	require.NoError(t, f.conn.Create(&models.ReferralEarning{
		ReferrerID: referrer.ID,
		ReferredID: user.ID,
		StakeID:    stake.ID,
		Amount:     dec("1"),
	}).Error)
	f.advance(31 * 24 * time.Hour)

	result, err := f.svc.Settle(ctx, stake.ID)
	require.NoError(t, err)
	assert.Nil(t, result.ReferrerID)
	assert.True(t, result.ReferrerBonus.IsZero())
	assert.True(t, result.SupplyConsumed.Equal(dec("200")))
	assert.True(t, f.tokens(t, user.ID).Equal(dec("1200")))
	assert.True(t, f.tokens(t, referrer.ID).IsZero(), "referrer credit rolled back with the savepoint")
	assert.True(t, f.remaining(t).Equal(dec("1999800")))

	settled, err := f.repo.FindByID(ctx, stake.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.StakeStatusCompleted, settled.Status)
}

func TestSettleConservesSupply(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	referrer := f.account(t, "referrer@test", nil, "")
	for i, amount := range []string{"100", "250.5", "999.999999"} {
		user := f.account(t, uuid.NewString()+"@test", &referrer.ID, amount)
		f.openMatured(t, user.ID, amount, []string{"5", "12.5", "33.3333"}[i])
	}
	f.advance(31 * 24 * time.Hour)

	stakes, err := f.repo.ListMatured(ctx, f.clock, nil, 0)
	require.NoError(t, err)
	require.Len(t, stakes, 3)

	consumed := decimal.Zero
	for _, stake := range stakes {
		result, err := f.svc.Settle(ctx, stake.ID)
		require.NoError(t, err)
		consumed = consumed.Add(result.SupplyConsumed)
	}

	status, err := f.supply.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.UserCirculatingRemaining.Equal(dec("2000000").Sub(consumed)))
	assert.True(t, status.AdminReserve.Add(status.UserCirculatingRemaining).Add(consumed).Equal(status.TotalSupply))
}

func TestSettleConcurrentCallsPayOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixtureOn(t, dbtest.OpenFile(t))
	user := f.account(t, "staker@test", nil, "1000")
	stake := f.openMatured(t, user.ID, "1000", "10")
	f.advance(31 * 24 * time.Hour)

	const callers = 2
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.Settle(ctx, stake.ID)
		}(i)
	}
	close(start)
	wg.Wait()

	outcomes := map[string]int{}
	for _, err := range errs {
		outcomes[Outcome(err)]++
		if err != nil {
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadySettled), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, map[string]int{metrics.OutcomeSettled: 1, metrics.OutcomeSkipped: 1}, outcomes)

	assert.True(t, f.tokens(t, user.ID).Equal(dec("1100")))
	assert.True(t, f.remaining(t).Equal(dec("1999900")))
	assert.Equal(t, 1.0, outcomeCount(t, f.registry, metrics.OutcomeSettled))

	var payouts int64
	require.NoError(t, f.conn.Model(&models.LedgerEvent{}).
		Where("reference_id = ? AND type = ?", stake.ID, enums.LedgerEventTypeStakePayout).
		Count(&payouts).Error)
	assert.EqualValues(t, 1, payouts)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, metrics.OutcomeSettled, Outcome(nil))
	assert.Equal(t, metrics.OutcomeDeferred, Outcome(pkgerrors.New(pkgerrors.CodeInsufficientUserSupply, "short")))
	assert.Equal(t, metrics.OutcomeSkipped, Outcome(pkgerrors.New(pkgerrors.CodeAlreadySettled, "done")))
	assert.Equal(t, metrics.OutcomeSkipped, Outcome(pkgerrors.New(pkgerrors.CodeStateConflict, "early")))
	assert.Equal(t, metrics.OutcomeFailed, Outcome(pkgerrors.New(pkgerrors.CodeDependency, "db")))
}
