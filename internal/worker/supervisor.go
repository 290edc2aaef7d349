// Package worker implements the Worker Supervisor: one instance per
// worker process, executing leased jobs and maintaining the worker's
// row in the store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/queuectl/internal/backoff"
	"github.com/rezkam/queuectl/internal/domain"
)

// LeaseTTL is the default duration a lease remains valid without a
// worker reporting completion or failure.
const (
	LeaseTTL          = 5 * time.Minute
	PollInterval      = time.Second
	HeartbeatInterval = 10 * time.Second

	// defaultBackoffBaseFallback is used only if the settings lookup
	// itself fails (e.g. a transient store error), never as a normal path.
	defaultBackoffBaseFallback = 2
)

// store is the subset of *store.Store the supervisor depends on.
type store interface {
	RegisterWorker(ctx context.Context, workerID string, now time.Time) error
	Heartbeat(ctx context.Context, workerID string, now time.Time) error
	MarkStopped(ctx context.Context, workerID string, now time.Time) error
	LeaseNextDue(ctx context.Context, workerID string, leaseTTL time.Duration, now time.Time) (*domain.Job, error)
	CompleteJob(ctx context.Context, jobID, workerID string, now time.Time) error
	FailJob(ctx context.Context, jobID, workerID, errMsg string, now time.Time, nextRetryAt time.Time) error
}

// settingsSource is the subset of *settings.Service the supervisor
// consults to pick the current backoff base on every failure.
type settingsSource interface {
	BackoffBase(ctx context.Context) (int, error)
}

// Supervisor runs the main loop for a single worker process.
type Supervisor struct {
	store             store
	settings          settingsSource
	errorHandler      ErrorHandler
	workerID          string
	leaseTTL          time.Duration
	pollInterval      time.Duration
	heartbeatInterval time.Duration
	commandTimeout    time.Duration

	shuttingDown atomic.Bool
}

// Option customizes a Supervisor at construction time.
type Option func(*Supervisor)

func WithLeaseTTL(d time.Duration) Option     { return func(s *Supervisor) { s.leaseTTL = d } }
func WithPollInterval(d time.Duration) Option { return func(s *Supervisor) { s.pollInterval = d } }
func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.heartbeatInterval = d }
}
func WithErrorHandler(h ErrorHandler) Option { return func(s *Supervisor) { s.errorHandler = h } }
func WithWorkerID(id string) Option          { return func(s *Supervisor) { s.workerID = id } }
func WithCommandTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.commandTimeout = d }
}

// New constructs a Supervisor with a fresh worker id unless
// WithWorkerID overrides it.
func New(st store, settingsSvc settingsSource, opts ...Option) *Supervisor {
	s := &Supervisor{
		store:             st,
		settings:          settingsSvc,
		errorHandler:      DefaultErrorHandler{},
		workerID:          uuid.NewString(),
		leaseTTL:          LeaseTTL,
		pollInterval:      PollInterval,
		heartbeatInterval: HeartbeatInterval,
		commandTimeout:    CommandTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WorkerID returns the identifier this supervisor registers under.
func (s *Supervisor) WorkerID() string { return s.workerID }

// RequestShutdown sets the shutdown flag observed between loop
// iterations; it never aborts an in-flight job.
func (s *Supervisor) RequestShutdown() {
	s.shuttingDown.Store(true)
}

// Run registers the worker and executes the main loop until
// RequestShutdown is called or ctx is cancelled, then marks the
// worker stopped before returning.
func (s *Supervisor) Run(ctx context.Context) error {
	now := time.Now()
	if err := s.store.RegisterWorker(ctx, s.workerID, now); err != nil {
		return err
	}
	slog.InfoContext(ctx, "worker registered", "worker_id", s.workerID)

	lastHeartbeat := time.Time{}

	for {
		if s.shuttingDown.Load() || ctx.Err() != nil {
			break
		}

		now = time.Now()
		if now.Sub(lastHeartbeat) >= s.heartbeatInterval {
			if err := s.store.Heartbeat(ctx, s.workerID, now); err != nil {
				slog.WarnContext(ctx, "heartbeat failed", "worker_id", s.workerID, "error", err)
			}
			lastHeartbeat = now
		}

		job, err := s.store.LeaseNextDue(ctx, s.workerID, s.leaseTTL, now)
		if err != nil {
			slog.ErrorContext(ctx, "lease attempt failed", "worker_id", s.workerID, "error", err)
			sleepOrDone(ctx, s.pollInterval)
			continue
		}
		if job == nil {
			sleepOrDone(ctx, s.pollInterval)
			continue
		}

		s.runJob(ctx, job)
	}

	return s.store.MarkStopped(context.WithoutCancel(ctx), s.workerID, time.Now())
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// runJob executes one leased job and reports its outcome, recovering
// from panics in the command path so one bad job cannot crash the
// supervisor.
func (s *Supervisor) runJob(ctx context.Context, job *domain.Job) {
	slog.InfoContext(ctx, "executing job", "job_id", job.ID, "worker_id", s.workerID, "attempts", job.Attempts)

	err := s.executeWithRecovery(ctx, job)
	now := time.Now()

	if err == nil {
		if completeErr := s.store.CompleteJob(ctx, job.ID, s.workerID, now); completeErr != nil {
			if errors.Is(completeErr, domain.ErrNotLeased) {
				slog.WarnContext(ctx, "lease lost before completion reported, discarding outcome",
					"job_id", job.ID, "worker_id", s.workerID)
				return
			}
			slog.ErrorContext(ctx, "failed to record completion", "job_id", job.ID, "error", completeErr)
		}
		slog.InfoContext(ctx, "job completed", "job_id", job.ID)
		return
	}

	s.errorHandler.HandleError(ctx, job, err)

	base, settingsErr := s.settings.BackoffBase(ctx)
	if settingsErr != nil {
		base = defaultBackoffBaseFallback
	}
	policy := backoff.NewPolicy(base)
	nextRetryAt := policy.NextRetryAt(now, job.Attempts)

	if failErr := s.store.FailJob(ctx, job.ID, s.workerID, err.Error(), now, nextRetryAt); failErr != nil {
		if errors.Is(failErr, domain.ErrNotLeased) {
			slog.WarnContext(ctx, "lease lost before failure reported, discarding outcome",
				"job_id", job.ID, "worker_id", s.workerID)
			return
		}
		slog.ErrorContext(ctx, "failed to record failure", "job_id", job.ID, "error", failErr)
	}
}

func (s *Supervisor) executeWithRecovery(ctx context.Context, job *domain.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stackTrace := string(debug.Stack())
			s.errorHandler.HandlePanic(ctx, job, r, stackTrace)
			err = &CommandError{
				Kind:   kindSpawnFailed,
				Err:    fmt.Errorf("panic: %v", r),
				Stderr: "panic during execution",
			}
		}
	}()
	return runCommandWithTimeout(ctx, job.Command, s.commandTimeout)
}
