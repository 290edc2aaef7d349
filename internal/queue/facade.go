// Package queue is the thin façade external collaborators (the CLI,
// future API layers) call: it carries no scheduling logic and no
// lease state of its own, delegating everything to the store and the
// settings service.
package queue

import (
	"context"
	"time"

	"github.com/rezkam/queuectl/internal/domain"
	"github.com/rezkam/queuectl/internal/settings"
)

// store is the subset of *store.Store the façade depends on.
type store interface {
	EnqueueJob(ctx context.Context, spec domain.Spec, defaultMaxRetries int, now time.Time) (*domain.Job, error)
	ListJobs(ctx context.Context, state domain.JobState, limit int) ([]*domain.Job, error)
	StatusCounts(ctx context.Context) (map[domain.JobState]int, error)
	ReviveDead(ctx context.Context, jobID string, now time.Time) (*domain.Job, error)
	ActiveWorkers(ctx context.Context, now time.Time, staleAfter time.Duration) ([]*domain.WorkerRecord, error)
}

// WorkerStaleAfter bounds how long a worker may go without a
// heartbeat before status() stops counting it as active.
const WorkerStaleAfter = 30 * time.Second

// Facade is the queue's external API surface.
type Facade struct {
	store    store
	settings *settings.Service
	now      func() time.Time
}

func New(s store, svc *settings.Service) *Facade {
	return &Facade{store: s, settings: svc, now: time.Now}
}

// Enqueue validates spec and delegates to the store.
func (f *Facade) Enqueue(ctx context.Context, spec domain.Spec) (*domain.Job, error) {
	if spec.ID == "" || spec.Command == "" {
		return nil, domain.ErrInvalid
	}
	if spec.MaxRetries != nil && *spec.MaxRetries < 0 {
		return nil, domain.ErrInvalid
	}

	defaultMaxRetries, err := f.settings.MaxRetries(ctx)
	if err != nil {
		return nil, err
	}
	return f.store.EnqueueJob(ctx, spec, defaultMaxRetries, f.now())
}

// List returns jobs, optionally filtered to a single state and
// capped to limit (0 means unbounded).
func (f *Facade) List(ctx context.Context, stateFilter domain.JobState, limit int) ([]*domain.Job, error) {
	return f.store.ListJobs(ctx, stateFilter, limit)
}

// Status reports per-state counts, the number of active workers, and
// the current effective configuration.
type Status struct {
	Counts        map[domain.JobState]int
	ActiveWorkers int
	Settings      settings.Snapshot
}

func (f *Facade) Status(ctx context.Context) (Status, error) {
	counts, err := f.store.StatusCounts(ctx)
	if err != nil {
		return Status{}, err
	}
	workers, err := f.store.ActiveWorkers(ctx, f.now(), WorkerStaleAfter)
	if err != nil {
		return Status{}, err
	}
	snap, err := f.settings.Snapshot(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{Counts: counts, ActiveWorkers: len(workers), Settings: snap}, nil
}

// DLQList lists only DEAD jobs.
func (f *Facade) DLQList(ctx context.Context, limit int) ([]*domain.Job, error) {
	return f.List(ctx, domain.JobDead, limit)
}

// DLQRetry revives a DEAD job back to PENDING.
func (f *Facade) DLQRetry(ctx context.Context, id string) (*domain.Job, error) {
	return f.store.ReviveDead(ctx, id, f.now())
}
