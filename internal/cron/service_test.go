package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/angelmondragon/tokenomics/pkg/logger"
	"github.com/angelmondragon/tokenomics/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeLock struct {
	acquired bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	f.releases++
	return nil
}

type testJob struct {
	name  string
	err   error
	panic bool
	runs  int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	if t.panic {
		panic("kaboom")
	}
	return t.err
}

func newTestService(t *testing.T, lock Lock, reg prometheus.Registerer, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("construct registry: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestServiceRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	panicking := &testJob{name: "panics", panic: true}
	last := &testJob{name: "last"}
	lock := &fakeLock{}
	service := newTestService(t, lock, nil, success, failure, panicking, last)

	err := service.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected joined job error")
	}
	if !strings.Contains(err.Error(), "fail: boom") || !strings.Contains(err.Error(), "panics: job panicked") {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, job := range []*testJob{success, failure, panicking, last} {
		if job.runs != 1 {
			t.Fatalf("expected %s to run once, ran %d", job.name, job.runs)
		}
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}
}

func TestServiceRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "job"}
	service := newTestService(t, &fakeLock{acquired: true}, nil, job)

	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job to be skipped, ran %d", job.runs)
	}
}

func TestServiceRecordsJobMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	service := newTestService(t, nil, registry, &testJob{name: "ok"}, &testJob{name: "bad", err: errors.New("x")})
	_ = service.RunOnce(context.Background())

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if metric.GetCounter() == nil {
				continue
			}
			for _, label := range metric.GetLabel() {
				counts[family.GetName()+"/"+label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	if counts["cron_job_success_total/ok"] != 1 || counts["cron_job_failure_total/bad"] != 1 {
		t.Fatalf("unexpected counters: %v", counts)
	}
}

func TestLocalLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	lock := &LocalLock{}
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected first acquire to succeed")
	}
	if ok, _ := lock.Acquire(ctx); ok {
		t.Fatal("expected second acquire to fail")
	}
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire after release to succeed")
	}
}
