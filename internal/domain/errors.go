package domain

import "errors"

// Input errors, returned synchronously to callers with no state change.
var (
	// ErrDuplicateID indicates enqueue was called with an id already present.
	ErrDuplicateID = errors.New("job id already exists")

	// ErrInvalid indicates a malformed job spec (empty command, negative max_retries).
	ErrInvalid = errors.New("invalid job spec")

	// ErrNotFound indicates the requested job does not exist.
	ErrNotFound = errors.New("job not found")

	// ErrNotDead indicates revive was called on a job that is not in DEAD state.
	ErrNotDead = errors.New("job is not dead")

	// ErrInvalidConfig indicates an unknown settings key or an unparsable value.
	ErrInvalidConfig = errors.New("invalid config")
)

// Lease errors, returned to workers when a completion/failure report
// arrives after the lease has been stolen by another worker.
var ErrNotLeased = errors.New("job is not leased by this worker")
