package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tokenomics/pkg/db"
	"github.com/angelmondragon/tokenomics/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultNotificationRetention = 30 * 24 * time.Hour
	defaultCleanupBatchSize      = 1000
)

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         db.TxRunner
	Repository readNotificationPruner
	Retention  time.Duration
	BatchSize  int
}

type readNotificationPruner interface {
	DeleteReadOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Repository == nil:
		return nil, fmt.Errorf("notifications repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultNotificationRetention
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultCleanupBatchSize
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		db:        params.DB,
		pruner:    params.Repository,
		retention: retention,
		batchSize: batch,
		now:       time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	db        db.TxRunner
	pruner    readNotificationPruner
	retention time.Duration
	batchSize int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

// Run deletes read notifications older than the retention window in bounded
// batches, one transaction per batch. Unread notifications are never pruned.
func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("notification cleanup interrupted after %d rows: %w", total, err)
		}
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			n, err := j.pruner.DeleteReadOlderThan(ctx, tx, cutoff, j.batchSize)
			deleted = n
			return err
		})
		if err != nil {
			return fmt.Errorf("notification cleanup: %w", err)
		}
		total += deleted
		batches++
		if deleted < int64(j.batchSize) {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"batches":      batches,
		"rows_deleted": total,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
