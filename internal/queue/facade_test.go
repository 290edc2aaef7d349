package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/rezkam/queuectl/internal/domain"
	"github.com/rezkam/queuectl/internal/ptr"
	"github.com/rezkam/queuectl/internal/queue"
	"github.com/rezkam/queuectl/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSettingsStore struct {
	values map[string]string
}

func (f *fakeSettingsStore) GetSetting(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", domain.ErrInvalidConfig
	}
	return v, nil
}

func (f *fakeSettingsStore) SetSetting(_ context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

type fakeQueueStore struct {
	jobs    map[string]*domain.Job
	workers []*domain.WorkerRecord
}

func newFakeQueueStore() *fakeQueueStore {
	return &fakeQueueStore{jobs: map[string]*domain.Job{}}
}

func (f *fakeQueueStore) EnqueueJob(_ context.Context, spec domain.Spec, defaultMaxRetries int, now time.Time) (*domain.Job, error) {
	if _, exists := f.jobs[spec.ID]; exists {
		return nil, domain.ErrDuplicateID
	}
	mr := defaultMaxRetries
	if spec.MaxRetries != nil {
		mr = *spec.MaxRetries
	}
	j := &domain.Job{ID: spec.ID, Command: spec.Command, State: domain.JobPending, MaxRetries: mr, CreatedAt: now, UpdatedAt: now}
	f.jobs[spec.ID] = j
	return j, nil
}

func (f *fakeQueueStore) ListJobs(_ context.Context, state domain.JobState, limit int) ([]*domain.Job, error) {
	var out []*domain.Job
	for _, j := range f.jobs {
		if state == "" || j.State == state {
			out = append(out, j)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeQueueStore) StatusCounts(_ context.Context) (map[domain.JobState]int, error) {
	counts := map[domain.JobState]int{}
	for _, j := range f.jobs {
		counts[j.State]++
	}
	return counts, nil
}

func (f *fakeQueueStore) ReviveDead(_ context.Context, jobID string, now time.Time) (*domain.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if j.State != domain.JobDead {
		return nil, domain.ErrNotDead
	}
	j.State = domain.JobPending
	j.Attempts = 0
	j.ErrorMessage = nil
	j.NextRetryAt = nil
	j.UpdatedAt = now
	return j, nil
}

func (f *fakeQueueStore) ActiveWorkers(_ context.Context, _ time.Time, _ time.Duration) ([]*domain.WorkerRecord, error) {
	return f.workers, nil
}

func TestFacade_EnqueueValidation(t *testing.T) {
	f := queue.New(newFakeQueueStore(), settings.New(&fakeSettingsStore{values: map[string]string{}}))
	ctx := context.Background()

	_, err := f.Enqueue(ctx, domain.Spec{ID: "", Command: "echo hi"})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	_, err = f.Enqueue(ctx, domain.Spec{ID: "j1", Command: ""})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	_, err = f.Enqueue(ctx, domain.Spec{ID: "j1", Command: "echo hi", MaxRetries: ptr.To(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	job, err := f.Enqueue(ctx, domain.Spec{ID: "j1", Command: "echo hi"})
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, job.State)
}

func TestFacade_DLQRetry(t *testing.T) {
	s := newFakeQueueStore()
	f := queue.New(s, settings.New(&fakeSettingsStore{values: map[string]string{}}))
	ctx := context.Background()

	_, err := f.Enqueue(ctx, domain.Spec{ID: "j1", Command: "false"})
	require.NoError(t, err)
	s.jobs["j1"].State = domain.JobDead

	revived, err := f.DLQRetry(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, revived.State)

	_, err = f.DLQRetry(ctx, "j1")
	assert.ErrorIs(t, err, domain.ErrNotDead)
}

func TestFacade_Status(t *testing.T) {
	s := newFakeQueueStore()
	f := queue.New(s, settings.New(&fakeSettingsStore{values: map[string]string{}}))
	ctx := context.Background()

	_, err := f.Enqueue(ctx, domain.Spec{ID: "j1", Command: "echo hi"})
	require.NoError(t, err)

	status, err := f.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Counts[domain.JobPending])
	assert.Equal(t, settings.DefaultMaxRetries, status.Settings.MaxRetries)
}
