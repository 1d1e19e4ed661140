package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/tokenomics/pkg/logger"
	"gorm.io/gorm"
)

func TestNotificationCleanupJobUsesDefaultRetention(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	pruner := &fakeNotificationPruner{batches: []int64{42}}
	job := newNotificationCleanupJob(t, pruner, NotificationCleanupJobParams{})
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if want := now.Add(-defaultNotificationRetention); !pruner.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, pruner.lastCutoff)
	}
	if pruner.called != 1 {
		t.Fatalf("expected a single batch, got %d", pruner.called)
	}
	if pruner.lastLimit != defaultCleanupBatchSize {
		t.Fatalf("expected default batch size, got %d", pruner.lastLimit)
	}
}

func TestNotificationCleanupJobDrainsFullBatches(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	pruner := &fakeNotificationPruner{batches: []int64{10, 10, 3}}
	job := newNotificationCleanupJob(t, pruner, NotificationCleanupJobParams{
		Retention: 7 * 24 * time.Hour,
		BatchSize: 10,
	})
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pruner.called != 3 {
		t.Fatalf("expected 3 batches, got %d", pruner.called)
	}
	if want := now.Add(-7 * 24 * time.Hour); !pruner.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, pruner.lastCutoff)
	}
}

func TestNotificationCleanupJobPropagatesErrors(t *testing.T) {
	pruner := &fakeNotificationPruner{err: errors.New("boom")}
	job := newNotificationCleanupJob(t, pruner, NotificationCleanupJobParams{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNotificationCleanupJobStopsOnCancel(t *testing.T) {
	pruner := &fakeNotificationPruner{}
	job := newNotificationCleanupJob(t, pruner, NotificationCleanupJobParams{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := job.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if pruner.called != 0 {
		t.Fatalf("expected no deletes after cancel, got %d", pruner.called)
	}
}

func newNotificationCleanupJob(t *testing.T, pruner *fakeNotificationPruner, params NotificationCleanupJobParams) *notificationCleanupJob {
	t.Helper()
	params.Logger = logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	params.DB = notificationFakeTxRunner{}
	params.Repository = pruner
	jobIface, err := NewNotificationCleanupJob(params)
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	job, ok := jobIface.(*notificationCleanupJob)
	if !ok {
		t.Fatalf("expected notificationCleanupJob, got %T", jobIface)
	}
	return job
}

type fakeNotificationPruner struct {
	batches    []int64
	lastCutoff time.Time
	lastLimit  int
	err        error
	called     int
}

func (f *fakeNotificationPruner) DeleteReadOlderThan(_ context.Context, _ *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	f.lastLimit = limit
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

type notificationFakeTxRunner struct{}

func (notificationFakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
