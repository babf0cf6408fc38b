package cron

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/gearstage-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	registry, err := NewRegistry(&testJob{name: "calendar-resync"}, &testJob{name: "fail", err: errors.New("boom")})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     &fakeLock{},
		Interval: 0,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx := context.Background()
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if success, ok := jobs[0].(*testJob); ok {
		if success.runs != 1 {
			t.Fatalf("expected success job to run once, ran %d", success.runs)
		}
	} else {
		t.Fatalf("first job type mismatch")
	}
	if failure, ok := jobs[1].(*testJob); ok {
		if failure.runs != 1 {
			t.Fatalf("expected failure job to run once, ran %d", failure.runs)
		}
	} else {
		t.Fatalf("second job type mismatch")
	}
}

func mustRegistry(t *testing.T, jobs ...Job) *Registry {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return registry
}

type heldLock struct{ releases int }

func (h *heldLock) Acquire(context.Context) (bool, error) { return false, nil }
func (h *heldLock) Release(context.Context) error         { h.releases++; return nil }

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	job := &testJob{name: "calendar-resync"}
	lock := &heldLock{}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: mustRegistry(t, job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job must not run without the lock, ran %d", job.runs)
	}
	if lock.releases != 0 {
		t.Fatalf("lock not owned, expected no release, got %d", lock.releases)
	}
}

func TestServiceRunJobRunsOnlyTheNamedJob(t *testing.T) {
	resync := &testJob{name: "calendar-resync", err: errors.New("calendar down")}
	other := &testJob{name: "draft-sweep"}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: mustRegistry(t, resync, other),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	err = service.RunJob(context.Background(), "calendar-resync")
	if err == nil || err.Error() != "calendar down" {
		t.Fatalf("expected job error to surface, got %v", err)
	}
	if resync.runs != 1 || other.runs != 0 {
		t.Fatalf("expected only the named job to run, got resync=%d other=%d", resync.runs, other.runs)
	}
	if lock.acquired {
		t.Fatalf("lock must be released after the job")
	}
}

func TestServiceRunJobUnknownName(t *testing.T) {
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: mustRegistry(t, &testJob{name: "calendar-resync"}),
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	err = service.RunJob(context.Background(), "nightly")
	if err == nil || !strings.Contains(err.Error(), `unknown cron job "nightly"`) {
		t.Fatalf("expected unknown job error, got %v", err)
	}
}
