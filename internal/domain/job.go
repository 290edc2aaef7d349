// Package domain defines the job/worker/settings data model and the
// invariants the store must preserve.
package domain

import "time"

// JobState is one of the legal states of the job state machine.
type JobState string

const (
	JobPending    JobState = "PENDING"
	JobProcessing JobState = "PROCESSING"
	JobCompleted  JobState = "COMPLETED"
	JobFailed     JobState = "FAILED"
	JobDead       JobState = "DEAD"
)

// Job is the central entity: a shell-command job identified by a
// caller-supplied id.
type Job struct {
	ID           string
	Command      string
	State        JobState
	Attempts     int
	MaxRetries   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ErrorMessage *string
	NextRetryAt  *time.Time
	LockedBy     *string
	LockedAt     *time.Time
}

// Leased reports whether the job currently holds a lease, regardless
// of whether that lease has expired.
func (j *Job) Leased() bool {
	return j.LockedBy != nil
}

// ValidLease reports whether the job's lease is still within ttl of now.
func (j *Job) ValidLease(now time.Time, ttl time.Duration) bool {
	if j.State != JobProcessing || j.LockedAt == nil {
		return false
	}
	return now.Sub(*j.LockedAt) <= ttl
}

// Spec is the caller-supplied input to Enqueue. All other Job
// attributes are assigned by the core.
type Spec struct {
	ID         string
	Command    string
	MaxRetries *int // nil uses the configured default
}
