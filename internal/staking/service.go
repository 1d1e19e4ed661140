package staking

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tokenomics/internal/accounts"
	"github.com/angelmondragon/tokenomics/internal/ledger"
	"github.com/angelmondragon/tokenomics/internal/notifications"
	"github.com/angelmondragon/tokenomics/internal/supply"
	"github.com/angelmondragon/tokenomics/internal/wallets"
	"github.com/angelmondragon/tokenomics/pkg/db"
	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/logger"
	"github.com/angelmondragon/tokenomics/pkg/metrics"
	"github.com/angelmondragon/tokenomics/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	maxDurationDays   = 3650
	referralSavepoint = "referral_bonus"
)

var (
	hundred          = decimal.NewFromInt(100)
	maxRewardPercent = decimal.NewFromInt(1000)
)

// Service owns the stake lifecycle.
type Service interface {
	OpenStake(ctx context.Context, input OpenStakeInput) (*models.Stake, error)
	ListStakes(ctx context.Context, accountID uuid.UUID) ([]models.Stake, error)
	Settle(ctx context.Context, stakeID uuid.UUID) (*SettlementResult, error)
}

// OpenStakeInput describes a new fixed-term stake.
type OpenStakeInput struct {
	AccountID     uuid.UUID
	Amount        decimal.Decimal
	DurationDays  int
	RewardPercent decimal.Decimal
}

// SettlementResult describes one committed settlement.
type SettlementResult struct {
	StakeID              uuid.UUID       `json:"stake_id"`
	AccountID            uuid.UUID       `json:"account_id"`
	Profit               decimal.Decimal `json:"profit"`
	TotalPayout          decimal.Decimal `json:"total_payout"`
	ReferrerID           *uuid.UUID      `json:"referrer_id,omitempty"`
	ReferrerBonus        decimal.Decimal `json:"referrer_bonus"`
	SupplyConsumed       decimal.Decimal `json:"supply_consumed"`
	CirculatingRemaining decimal.Decimal `json:"circulating_remaining"`
	SettledAt            time.Time       `json:"settled_at"`
}

// ServiceParams configure the staking service.
type ServiceParams struct {
	Repository        Repository
	DB                db.TxRunner
	Accounts          accounts.Provider
	Wallets           wallets.Service
	Supply            supply.Service
	Ledger            ledger.Service
	Notifier          notifications.Notifier
	Metrics           *metrics.SettlementMetrics
	Logger            *logger.Logger
	ReferralBonusRate decimal.Decimal
}

type service struct {
	repo         Repository
	db           db.TxRunner
	accounts     accounts.Provider
	wallets      wallets.Service
	supply       supply.Service
	ledger       ledger.Service
	notifier     notifications.Notifier
	metrics      *metrics.SettlementMetrics
	logg         *logger.Logger
	referralRate decimal.Decimal
	now          func() time.Time
}

// NewService builds the staking service. Notifier and metrics are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("stakes repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts provider required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallets service required")
	}
	if params.Supply == nil {
		return nil, fmt.Errorf("supply service required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.ReferralBonusRate.IsNegative() || params.ReferralBonusRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("referral bonus rate must be within [0,1]")
	}
	return &service{
		repo:         params.Repository,
		db:           params.DB,
		accounts:     params.Accounts,
		wallets:      params.Wallets,
		supply:       params.Supply,
		ledger:       params.Ledger,
		notifier:     params.Notifier,
		metrics:      params.Metrics,
		logg:         params.Logger,
		referralRate: params.ReferralBonusRate,
		now:          time.Now,
	}, nil
}

func (s *service) OpenStake(ctx context.Context, input OpenStakeInput) (*models.Stake, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	amount := types.RoundAmount(input.Amount)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.DurationDays < 1 || input.DurationDays > maxDurationDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duration must be between 1 and %d days", maxDurationDays))
	}
	if input.RewardPercent.IsNegative() || input.RewardPercent.GreaterThan(maxRewardPercent) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward percent must be between 0 and 1000")
	}

	start := s.now().UTC()
	stake := &models.Stake{
		AccountID:     input.AccountID,
		Amount:        amount,
		DurationDays:  input.DurationDays,
		RewardPercent: input.RewardPercent.Round(4),
		StartTime:     start,
		EndTime:       start.Add(time.Duration(input.DurationDays) * 24 * time.Hour),
		Status:        enums.StakeStatusActive,
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.wallets.Debit(ctx, tx, input.AccountID, enums.AssetToken, amount); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, stake); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stake")
		}
		_, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
			AccountID:   input.AccountID,
			Type:        enums.LedgerEventTypeStakeOpened,
			Asset:       enums.AssetToken,
			Amount:      amount,
			ReferenceID: &stake.ID,
			Metadata: map[string]any{
				"duration_days":  input.DurationDays,
				"reward_percent": stake.RewardPercent.String(),
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithStakeID(s.logg.WithAccountID(ctx, input.AccountID.String()), stake.ID.String())
	s.logg.Info(logCtx, "stake opened")
	return stake, nil
}

func (s *service) ListStakes(ctx context.Context, accountID uuid.UUID) ([]models.Stake, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	stakes, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stakes")
	}
	return stakes, nil
}
