package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tokenomics/internal/staking"
	"github.com/angelmondragon/tokenomics/pkg/logger"
)

// StakeSettlementJobName is the registry name of the matured-stake sweep.
const StakeSettlementJobName = "stake-settlement"

type stakeSweeper interface {
	RunSweep(ctx context.Context) (staking.SweepResult, error)
}

type StakeSettlementJobParams struct {
	Logger  *logger.Logger
	Sweeper stakeSweeper
}

func NewStakeSettlementJob(params StakeSettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("stake sweeper required")
	}
	return &stakeSettlementJob{logg: params.Logger, sweeper: params.Sweeper}, nil
}

type stakeSettlementJob struct {
	logg    *logger.Logger
	sweeper stakeSweeper
}

func (j *stakeSettlementJob) Name() string { return StakeSettlementJobName }

// Run fails only on hard settlement errors. Deferred stakes are retried next cycle.
func (j *stakeSettlementJob) Run(ctx context.Context) error {
	result, err := j.sweeper.RunSweep(ctx)
	if result.Deferred > 0 {
		logCtx := j.logg.WithField(ctx, "deferred", result.Deferred)
		j.logg.Warn(logCtx, "matured stakes deferred until circulating supply is replenished")
	}
	if err != nil {
		return fmt.Errorf("stake settlement sweep: %w", err)
	}
	return nil
}
