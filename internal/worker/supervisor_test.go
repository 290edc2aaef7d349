package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rezkam/queuectl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSupervisorStore struct {
	mu         sync.Mutex
	job        *domain.Job
	leased     bool
	completed  []string
	failed     map[string]string
	registered bool
	stopped    bool
}

func newFakeSupervisorStore(job *domain.Job) *fakeSupervisorStore {
	return &fakeSupervisorStore{job: job, failed: map[string]string{}}
}

func (f *fakeSupervisorStore) RegisterWorker(_ context.Context, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = true
	return nil
}

func (f *fakeSupervisorStore) Heartbeat(_ context.Context, _ string, _ time.Time) error { return nil }

func (f *fakeSupervisorStore) MarkStopped(_ context.Context, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeSupervisorStore) LeaseNextDue(_ context.Context, workerID string, _ time.Duration, _ time.Time) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.job == nil || f.leased {
		return nil, nil
	}
	f.leased = true
	worker := workerID
	f.job.LockedBy = &worker
	f.job.State = domain.JobProcessing
	f.job.Attempts++
	return f.job, nil
}

func (f *fakeSupervisorStore) CompleteJob(_ context.Context, jobID, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, jobID)
	return nil
}

func (f *fakeSupervisorStore) FailJob(_ context.Context, jobID, _, errMsg string, _ time.Time, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[jobID] = errMsg
	return nil
}

type fakeSettings struct{}

func (fakeSettings) BackoffBase(_ context.Context) (int, error) { return 2, nil }

func TestSupervisor_RunCompletesJob(t *testing.T) {
	job := &domain.Job{ID: "j1", Command: "true"}
	st := newFakeSupervisorStore(job)
	sup := New(st, fakeSettings{}, WithPollInterval(time.Millisecond), WithHeartbeatInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		sup.RequestShutdown()
	}()

	err := sup.Run(ctx)
	require.NoError(t, err)

	st.mu.Lock()
	defer st.mu.Unlock()
	assert.True(t, st.registered)
	assert.True(t, st.stopped)
	assert.Contains(t, st.completed, "j1")
}

func TestSupervisor_RunFailsJob(t *testing.T) {
	job := &domain.Job{ID: "j2", Command: "false"}
	st := newFakeSupervisorStore(job)
	sup := New(st, fakeSettings{}, WithPollInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		sup.RequestShutdown()
	}()

	require.NoError(t, sup.Run(ctx))

	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Contains(t, st.failed, "j2")
}

func TestSupervisor_RunRespectsCommandTimeout(t *testing.T) {
	job := &domain.Job{ID: "j3", Command: "sleep 1"}
	st := newFakeSupervisorStore(job)
	sup := New(st, fakeSettings{},
		WithPollInterval(time.Millisecond),
		WithCommandTimeout(10*time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		sup.RequestShutdown()
	}()

	require.NoError(t, sup.Run(ctx))

	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Contains(t, st.failed, "j3")
}

func TestSupervisor_IdlesWithoutJob(t *testing.T) {
	st := newFakeSupervisorStore(nil)
	sup := New(st, fakeSettings{}, WithPollInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(30 * time.Millisecond)
		sup.RequestShutdown()
	}()

	require.NoError(t, sup.Run(ctx))
	assert.Empty(t, st.completed)
	assert.Empty(t, st.failed)
}
