package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

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

func newTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "fail", err: errors.New("boom")}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   newTestLogger(),
		Registry: mustRegistry(t, failing, ok),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, service.runCycle(context.Background()))
	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, failing.runs)
	require.Equal(t, 1, lock.released)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "ok"}
	service, err := NewService(ServiceParams{
		Logger:   newTestLogger(),
		Registry: mustRegistry(t, job),
		Lock:     &fakeLock{held: true},
	})
	require.NoError(t, err)

	require.NoError(t, service.runCycle(context.Background()))
	require.Zero(t, job.runs)
}

func TestRunReturnsOnCancel(t *testing.T) {
	job := &testJob{name: "ok"}
	service, err := NewService(ServiceParams{
		Logger:   newTestLogger(),
		Registry: mustRegistry(t, job),
		Lock:     &fakeLock{},
		Interval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, service.Run(ctx), context.DeadlineExceeded)
	require.Equal(t, 1, job.runs)
}

func TestRunJobByName(t *testing.T) {
	target := &testJob{name: "target"}
	other := &testJob{name: "other"}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   newTestLogger(),
		Registry: mustRegistry(t, target, other),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, service.RunJob(context.Background(), "target"))
	require.Equal(t, 1, target.runs)
	require.Zero(t, other.runs)
	require.Equal(t, 1, lock.released)

	require.ErrorIs(t, service.RunJob(context.Background(), "nope"), ErrUnknownJob)
}

func TestRunJobAppliesTimeout(t *testing.T) {
	slow := &blockingJob{}
	service, err := NewService(ServiceParams{
		Logger:     newTestLogger(),
		Registry:   mustRegistry(t, slow),
		Lock:       &fakeLock{},
		JobTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	require.ErrorIs(t, service.RunJob(context.Background(), "blocking"), context.DeadlineExceeded)
}

type blockingJob struct{}

func (blockingJob) Name() string { return "blocking" }

func (blockingJob) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func mustRegistry(t *testing.T, jobs ...Job) *Registry {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	return registry
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: newTestLogger()})
	require.Error(t, err)
}
