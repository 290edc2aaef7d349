// Package storetest holds a standard compliance suite that any
// store.Store instance must pass, independent of how it is wired up
// in a given test.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/queuectl/internal/domain"
	"github.com/rezkam/queuectl/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run runs the standard compliance suite against a fresh store
// returned by setup for each subtest. teardown is called after each
// subtest to release resources.
func Run(t *testing.T, setup func() (*store.Store, func())) {
	t.Run("EnqueueAndGet", func(t *testing.T) {
		s, teardown := setup()
		defer teardown()
		ctx := context.Background()
		now := time.Now()

		job, err := s.EnqueueJob(ctx, domain.Spec{ID: uuid.New().String(), Command: "echo hi"}, 5, now)
		require.NoError(t, err)
		assert.Equal(t, domain.JobPending, job.State)

		fetched, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.Command, fetched.Command)
		assert.Equal(t, 0, fetched.Attempts)
	})

	t.Run("EnqueueDuplicateID", func(t *testing.T) {
		s, teardown := setup()
		defer teardown()
		ctx := context.Background()
		now := time.Now()

		spec := domain.Spec{ID: uuid.New().String(), Command: "echo hi"}
		_, err := s.EnqueueJob(ctx, spec, 5, now)
		require.NoError(t, err)

		_, err = s.EnqueueJob(ctx, spec, 5, now)
		assert.ErrorIs(t, err, domain.ErrDuplicateID)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		s, teardown := setup()
		defer teardown()

		_, err := s.GetJob(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("LeaseOrdersByCreatedAt", func(t *testing.T) {
		s, teardown := setup()
		defer teardown()
		ctx := context.Background()
		base := time.Now()

		first, err := s.EnqueueJob(ctx, domain.Spec{ID: "a", Command: "echo a"}, 5, base)
		require.NoError(t, err)
		_, err = s.EnqueueJob(ctx, domain.Spec{ID: "b", Command: "echo b"}, 5, base.Add(time.Second))
		require.NoError(t, err)

		leased, err := s.LeaseNextDue(ctx, "worker-1", time.Minute, base.Add(time.Second))
		require.NoError(t, err)
		require.NotNil(t, leased)
		assert.Equal(t, first.ID, leased.ID)
		assert.Equal(t, 1, leased.Attempts)
		assert.Equal(t, domain.JobProcessing, leased.State)
	})

	t.Run("LeaseExclusiveUnderConcurrency", func(t *testing.T) {
		s, teardown := setup()
		defer teardown()
		ctx := context.Background()
		now := time.Now()

		_, err := s.EnqueueJob(ctx, domain.Spec{ID: uuid.New().String(), Command: "echo hi"}, 5, now)
		require.NoError(t, err)

		const workers = 8
		var wg sync.WaitGroup
		var mu sync.Mutex
		leasedBy := map[string]bool{}

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				job, err := s.LeaseNextDue(ctx, uuid.New().String(), time.Minute, time.Now())
				if err != nil || job == nil {
					return
				}
				mu.Lock()
				leasedBy[job.ID] = true
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		assert.Len(t, leasedBy, 1, "exactly one worker should have won the lease")
	})

	t.Run("CompleteRequiresCurrentLease", func(t *testing.T) {
		s, teardown := setup()
		defer teardown()
		ctx := context.Background()
		now := time.Now()

		_, err := s.EnqueueJob(ctx, domain.Spec{ID: uuid.New().String(), Command: "echo hi"}, 5, now)
		require.NoError(t, err)
		job, err := s.LeaseNextDue(ctx, "worker-1", time.Minute, now)
		require.NoError(t, err)
		require.NotNil(t, job)

		err = s.CompleteJob(ctx, job.ID, "worker-2", now)
		assert.ErrorIs(t, err, domain.ErrNotLeased)

		err = s.CompleteJob(ctx, job.ID, "worker-1", now)
		require.NoError(t, err)

		fetched, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobCompleted, fetched.State)
	})

	t.Run("FailMovesToDeadAfterMaxRetries", func(t *testing.T) {
		s, teardown := setup()
		defer teardown()
		ctx := context.Background()
		now := time.Now()

		_, err := s.EnqueueJob(ctx, domain.Spec{ID: uuid.New().String(), Command: "false"}, 0, now)
		require.NoError(t, err)

		job, err := s.LeaseNextDue(ctx, "worker-1", time.Minute, now)
		require.NoError(t, err)
		require.NotNil(t, job)

		err = s.FailJob(ctx, job.ID, "worker-1", "boom", now, now.Add(time.Second))
		require.NoError(t, err)

		fetched, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobDead, fetched.State)
	})

	t.Run("ReviveDeadJob", func(t *testing.T) {
		s, teardown := setup()
		defer teardown()
		ctx := context.Background()
		now := time.Now()

		_, err := s.EnqueueJob(ctx, domain.Spec{ID: uuid.New().String(), Command: "false"}, 0, now)
		require.NoError(t, err)
		job, err := s.LeaseNextDue(ctx, "worker-1", time.Minute, now)
		require.NoError(t, err)
		require.NoError(t, s.FailJob(ctx, job.ID, "worker-1", "boom", now, now))

		revived, err := s.ReviveDead(ctx, job.ID, now)
		require.NoError(t, err)
		assert.Equal(t, domain.JobPending, revived.State)
		assert.Equal(t, 0, revived.Attempts)

		_, err = s.ReviveDead(ctx, job.ID, now)
		assert.ErrorIs(t, err, domain.ErrNotDead)
	})

	t.Run("CrashRecoveryReleasesExpiredLease", func(t *testing.T) {
		s, teardown := setup()
		defer teardown()
		ctx := context.Background()
		now := time.Now()

		_, err := s.EnqueueJob(ctx, domain.Spec{ID: uuid.New().String(), Command: "sleep 10"}, 5, now)
		require.NoError(t, err)

		leaseTTL := 5 * time.Minute
		job, err := s.LeaseNextDue(ctx, "worker-crashed", leaseTTL, now)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, 1, job.Attempts)

		recovered, err := s.LeaseNextDue(ctx, "worker-recovering", leaseTTL, now.Add(leaseTTL+time.Second))
		require.NoError(t, err)
		require.NotNil(t, recovered)
		assert.Equal(t, job.ID, recovered.ID)
		assert.Equal(t, 2, recovered.Attempts)
	})

	t.Run("ListJobsAppliesLimit", func(t *testing.T) {
		s, teardown := setup()
		defer teardown()
		ctx := context.Background()
		now := time.Now()

		for i := 0; i < 3; i++ {
			_, err := s.EnqueueJob(ctx, domain.Spec{ID: uuid.New().String(), Command: "true"}, 0, now)
			require.NoError(t, err)
		}

		limited, err := s.ListJobs(ctx, "", 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		all, err := s.ListJobs(ctx, "", 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("ListJobsDefaultIncludesDead", func(t *testing.T) {
		s, teardown := setup()
		defer teardown()
		ctx := context.Background()
		now := time.Now()

		_, err := s.EnqueueJob(ctx, domain.Spec{ID: uuid.New().String(), Command: "false"}, 0, now)
		require.NoError(t, err)
		job, err := s.LeaseNextDue(ctx, "worker-1", time.Minute, now)
		require.NoError(t, err)
		require.NoError(t, s.FailJob(ctx, job.ID, "worker-1", "boom", now, now))

		all, err := s.ListJobs(ctx, "", 0)
		require.NoError(t, err)
		found := false
		for _, j := range all {
			if j.ID == job.ID {
				found = true
				assert.Equal(t, domain.JobDead, j.State)
			}
		}
		assert.True(t, found, "DEAD jobs must appear in an unfiltered listing")
	})

	t.Run("WorkerLifecycle", func(t *testing.T) {
		s, teardown := setup()
		defer teardown()
		ctx := context.Background()
		now := time.Now()

		require.NoError(t, s.RegisterWorker(ctx, "worker-1", now))
		require.NoError(t, s.Heartbeat(ctx, "worker-1", now.Add(time.Second)))

		active, err := s.ActiveWorkers(ctx, now.Add(time.Second), time.Minute)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "worker-1", active[0].WorkerID)

		require.NoError(t, s.MarkStopped(ctx, "worker-1", now.Add(2*time.Second)))
		active, err = s.ActiveWorkers(ctx, now.Add(2*time.Second), time.Minute)
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("Settings", func(t *testing.T) {
		s, teardown := setup()
		defer teardown()
		ctx := context.Background()

		_, err := s.GetSetting(ctx, "backoff_base")
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)

		require.NoError(t, s.SetSetting(ctx, "backoff_base", "3"))
		v, err := s.GetSetting(ctx, "backoff_base")
		require.NoError(t, err)
		assert.Equal(t, "3", v)
	})
}
