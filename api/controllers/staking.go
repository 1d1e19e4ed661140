package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tokenomics/api/responses"
	"github.com/angelmondragon/tokenomics/api/validators"
	"github.com/angelmondragon/tokenomics/internal/staking"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/logger"
)

// StakeSweeper runs one settlement pass over matured stakes.
type StakeSweeper interface {
	RunSweep(ctx context.Context) (staking.SweepResult, error)
}

type openStakeRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"amount"`
	DurationDays  int             `json:"duration_days" validate:"required,min=1,max=3650"`
	RewardPercent decimal.Decimal `json:"reward_percent"`
}

func OpenStake(svc staking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req openStakeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stake, err := svc.OpenStake(r.Context(), staking.OpenStakeInput{
			AccountID:     accountID,
			Amount:        req.Amount,
			DurationDays:  req.DurationDays,
			RewardPercent: req.RewardPercent,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, stake)
	}
}

func ListStakes(svc staking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stakes, err := svc.ListStakes(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"stakes": stakes})
	}
}

// AdminSettleStake settles one matured stake on demand.
func AdminSettleStake(svc staking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stakeID, err := validators.ParseUUIDParam(chi.URLParam(r, "stakeId"), "stakeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Settle(r.Context(), stakeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminSweepStakes triggers a settlement pass outside the cron schedule.
func AdminSweepStakes(sweeper StakeSweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sweeper == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sweeper unavailable"))
			return
		}

		result, err := sweeper.RunSweep(r.Context())
		if err != nil && result.Processed+result.Deferred+result.Skipped+result.Failed == 0 {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err != nil && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "failed", result.Failed), "stake sweep finished with failures")
		}
		responses.WriteSuccess(w, result)
	}
}
