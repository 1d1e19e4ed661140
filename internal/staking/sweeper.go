package staking

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tokenomics/pkg/logger"
	"github.com/angelmondragon/tokenomics/pkg/metrics"
	"go.uber.org/multierr"
)

const defaultSweepBatchSize = 500

// SweepResult counts what happened to each matured stake in one sweep.
type SweepResult struct {
	Processed int `json:"processed"`
	Deferred  int `json:"deferred"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Sweeper settles every matured stake, reading them in pages of batchSize.
// Each stake settles in its own transaction so one failure never rolls back
// another stake's payout.
type Sweeper struct {
	repo      Repository
	settler   Service
	logg      *logger.Logger
	batchSize int
	now       func() time.Time
}

type SweeperParams struct {
	Repository Repository
	Service    Service
	Logger     *logger.Logger
	BatchSize  int
}

func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("stakes repository required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("staking service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	return &Sweeper{
		repo:      params.Repository,
		settler:   params.Service,
		logg:      params.Logger,
		batchSize: batch,
		now:       time.Now,
	}, nil
}

// RunSweep settles every stake that had matured when the sweep started.
// Deferred and skipped stakes stay behind the cursor, so they never starve
// stakes later in the order. The returned error aggregates hard failures;
// deferred and skipped stakes are not errors.
func (s *Sweeper) RunSweep(ctx context.Context) (SweepResult, error) {
	var (
		result  SweepResult
		errs    error
		cursor  *MaturedCursor
		matured int
	)
	now := s.now().UTC()

pages:
	for {
		stakes, err := s.repo.ListMatured(ctx, now, cursor, s.batchSize)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("list matured stakes: %w", err))
			break
		}
		matured += len(stakes)

		for _, stake := range stakes {
			if err := ctx.Err(); err != nil {
				errs = multierr.Append(errs, err)
				break pages
			}
			_, err := s.settler.Settle(ctx, stake.ID)
			switch Outcome(err) {
			case metrics.OutcomeSettled:
				result.Processed++
			case metrics.OutcomeDeferred:
				result.Deferred++
			case metrics.OutcomeSkipped:
				result.Skipped++
			default:
				result.Failed++
				errs = multierr.Append(errs, fmt.Errorf("settle stake %s: %w", stake.ID, err))
			}
		}

		if len(stakes) < s.batchSize {
			break
		}
		last := stakes[len(stakes)-1]
		cursor = &MaturedCursor{EndTime: last.EndTime, ID: last.ID}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"matured":   matured,
		"processed": result.Processed,
		"deferred":  result.Deferred,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	})
	s.logg.Info(logCtx, "stake sweep finished")
	return result, errs
}
