package staking

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tokenomics/internal/ledger"
	"github.com/angelmondragon/tokenomics/internal/supply"
	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/metrics"
	"github.com/angelmondragon/tokenomics/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Settle pays out one matured stake in a single transaction:
//
//   - the stake and supply rows are locked before any delta is computed
//   - a supply shortfall defers the whole settlement with INSUFFICIENT_USER_SUPPLY
//   - the referral bonus runs under a savepoint and never blocks the staker's payout
//   - the ACTIVE -> COMPLETED flip is a compare-and-set in the same transaction
//
// A stake that is no longer ACTIVE yields ALREADY_SETTLED.
func (s *service) Settle(ctx context.Context, stakeID uuid.UUID) (*SettlementResult, error) {
	if stakeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stake id is required")
	}
	ctx = s.logg.WithStakeID(ctx, stakeID.String())
	now := s.now().UTC()

	var result *SettlementResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.settleTx(ctx, tx, stakeID, now)
		return err
	})
	s.metrics.IncOutcome(Outcome(err))
	if err != nil {
		s.logOutcome(ctx, err)
		return nil, err
	}

	s.metrics.SetCirculatingRemaining(result.CirculatingRemaining)
	logCtx := s.logg.WithFields(s.logg.WithAccountID(ctx, result.AccountID.String()), map[string]any{
		"profit":          result.Profit.String(),
		"total_payout":    result.TotalPayout.String(),
		"referrer_bonus":  result.ReferrerBonus.String(),
		"supply_consumed": result.SupplyConsumed.String(),
	})
	s.logg.Info(logCtx, "stake settled")
	s.notifySettled(ctx, result)
	return result, nil
}

func (s *service) settleTx(ctx context.Context, tx *gorm.DB, stakeID uuid.UUID, now time.Time) (*SettlementResult, error) {
	repo := s.repo.WithTx(tx)
	stake, err := repo.Lock(ctx, stakeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock stake")
	}
	if stake == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stake not found")
	}
	if stake.Status != enums.StakeStatusActive || stake.Claimed {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadySettled, "stake already settled")
	}
	if now.Before(stake.EndTime) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "stake has not matured")
	}

	profit := types.RoundAmount(stake.Amount.Mul(stake.RewardPercent).Div(hundred))
	totalPayout := stake.Amount.Add(profit)

	referrerID, err := s.resolveReferrer(ctx, tx, stake.AccountID)
	if err != nil {
		return nil, err
	}
	bonus := decimal.Zero
	if referrerID != nil {
		bonus = types.RoundAmount(profit.Mul(s.referralRate))
	}

	// preflight: every credit below is covered by the pool or nothing happens
	pool, err := s.supply.Lock(ctx, tx)
	if err != nil {
		return nil, err
	}
	needed := profit.Add(bonus)
	if pool.UserCirculatingRemaining.LessThan(needed) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientUserSupply, "settlement deferred until circulating supply is replenished").
			WithDetails(supply.InsufficientDetails{Available: pool.UserCirculatingRemaining, Requested: needed})
	}

	pool, err = s.supply.DebitCirculating(ctx, tx, profit)
	if err != nil {
		return nil, err
	}
	if _, err := s.wallets.Credit(ctx, tx, stake.AccountID, enums.AssetToken, totalPayout); err != nil {
		return nil, err
	}

	result := &SettlementResult{
		StakeID:              stake.ID,
		AccountID:            stake.AccountID,
		Profit:               profit,
		TotalPayout:          totalPayout,
		ReferrerBonus:        decimal.Zero,
		SupplyConsumed:       profit,
		CirculatingRemaining: pool.UserCirculatingRemaining,
		SettledAt:            now,
	}

	if referrerID != nil && bonus.IsPositive() {
		remaining, err := s.payReferral(ctx, tx, stake, *referrerID, bonus)
		if err != nil {
			logCtx := s.logg.WithField(ctx, "referrer_id", referrerID.String())
			s.logg.Warn(logCtx, fmt.Sprintf("referral bonus skipped: %v", err))
		} else {
			result.ReferrerID = referrerID
			result.ReferrerBonus = bonus
			result.SupplyConsumed = needed
			result.CirculatingRemaining = remaining
		}
	}

	settled, err := repo.MarkSettled(ctx, stake.ID, profit, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark stake settled")
	}
	if !settled {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadySettled, "stake already settled")
	}

	if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
		AccountID:   stake.AccountID,
		Type:        enums.LedgerEventTypeStakePayout,
		Asset:       enums.AssetToken,
		Amount:      totalPayout,
		ReferenceID: &stake.ID,
		Metadata: map[string]string{
			"principal": stake.Amount.String(),
			"profit":    profit.String(),
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stake payout")
	}
	return result, nil
}

// resolveReferrer returns nil when the staker has no referrer or the referrer account is gone.
func (s *service) resolveReferrer(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*uuid.UUID, error) {
	provider := s.accounts.WithTx(tx)
	referrerID, err := provider.Referrer(ctx, accountID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if referrerID == nil {
		return nil, nil
	}
	if _, err := provider.GetAccount(ctx, *referrerID); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			logCtx := s.logg.WithField(ctx, "referrer_id", referrerID.String())
			s.logg.Warn(logCtx, "referrer account missing, skipping referral bonus")
			return nil, nil
		}
		return nil, err
	}
	return referrerID, nil
}

// payReferral credits the bonus under a savepoint and returns the circulating
// counter after the bonus debit. On error the savepoint is rolled back.
func (s *service) payReferral(ctx context.Context, tx *gorm.DB, stake *models.Stake, referrerID uuid.UUID, bonus decimal.Decimal) (decimal.Decimal, error) {
	if err := tx.SavePoint(referralSavepoint).Error; err != nil {
		return decimal.Zero, err
	}
	remaining, err := s.creditReferral(ctx, tx, stake, referrerID, bonus)
	if err != nil {
		if rbErr := tx.RollbackTo(referralSavepoint).Error; rbErr != nil {
			return decimal.Zero, fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
		}
		return decimal.Zero, err
	}
	return remaining, nil
}

func (s *service) creditReferral(ctx context.Context, tx *gorm.DB, stake *models.Stake, referrerID uuid.UUID, bonus decimal.Decimal) (decimal.Decimal, error) {
	if _, err := s.wallets.Credit(ctx, tx, referrerID, enums.AssetToken, bonus); err != nil {
		return decimal.Zero, err
	}
	if err := s.repo.WithTx(tx).CreateReferralEarning(ctx, &models.ReferralEarning{
		ReferrerID: referrerID,
		ReferredID: stake.AccountID,
		StakeID:    stake.ID,
		Amount:     bonus,
	}); err != nil {
		return decimal.Zero, err
	}
	pool, err := s.supply.DebitCirculating(ctx, tx, bonus)
	if err != nil {
		return decimal.Zero, err
	}
	if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
		AccountID:   referrerID,
		Type:        enums.LedgerEventTypeReferralBonus,
		Asset:       enums.AssetToken,
		Amount:      bonus,
		ReferenceID: &stake.ID,
		Metadata:    map[string]string{"referred_id": stake.AccountID.String()},
	}); err != nil {
		return decimal.Zero, err
	}
	return pool.UserCirculatingRemaining, nil
}

func (s *service) notifySettled(ctx context.Context, result *SettlementResult) {
	if s.notifier == nil {
		return
	}
	msg := fmt.Sprintf("Your stake matured: %s tokens credited (profit %s).", result.TotalPayout.String(), result.Profit.String())
	if err := s.notifier.Notify(ctx, result.AccountID, enums.NotificationTypeStakeSettled, msg); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("stake settlement notification failed: %v", err))
	}
	if result.ReferrerID == nil {
		return
	}
	msg = fmt.Sprintf("You earned a %s token referral bonus.", result.ReferrerBonus.String())
	if err := s.notifier.Notify(ctx, *result.ReferrerID, enums.NotificationTypeReferralBonus, msg); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("referral bonus notification failed: %v", err))
	}
}

func (s *service) logOutcome(ctx context.Context, err error) {
	switch Outcome(err) {
	case metrics.OutcomeDeferred:
		s.logg.Warn(ctx, "stake settlement deferred: insufficient circulating supply")
	case metrics.OutcomeSkipped:
		s.logg.Info(ctx, fmt.Sprintf("stake settlement skipped: %v", err))
	default:
		s.logg.Error(ctx, "stake settlement failed", err)
	}
}

// Outcome classifies a Settle error into a settlement outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSettled
	case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientUserSupply):
		return metrics.OutcomeDeferred
	case pkgerrors.IsCode(err, pkgerrors.CodeAlreadySettled), pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
		return metrics.OutcomeSkipped
	default:
		return metrics.OutcomeFailed
	}
}
