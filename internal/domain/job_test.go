package domain_test

import (
	"testing"
	"time"

	"github.com/rezkam/queuectl/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestJob_ValidLease(t *testing.T) {
	now := time.Now()
	lockedAt := now.Add(-4 * time.Minute)

	processing := &domain.Job{
		State:    domain.JobProcessing,
		LockedAt: &lockedAt,
	}
	assert.True(t, processing.ValidLease(now, 5*time.Minute))
	assert.False(t, processing.ValidLease(now, 3*time.Minute))

	pending := &domain.Job{State: domain.JobPending}
	assert.False(t, pending.ValidLease(now, 5*time.Minute))
}

func TestJob_Leased(t *testing.T) {
	worker := "worker-1"
	leased := &domain.Job{LockedBy: &worker}
	assert.True(t, leased.Leased())

	unleased := &domain.Job{}
	assert.False(t, unleased.Leased())
}
