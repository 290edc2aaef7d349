package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rezkam/queuectl/internal/domain"
)

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// EnqueueJob inserts a new PENDING job. It returns domain.ErrDuplicateID
// if spec.ID is already present.
func (s *Store) EnqueueJob(ctx context.Context, spec domain.Spec, defaultMaxRetries int, now time.Time) (*domain.Job, error) {
	maxRetries := defaultMaxRetries
	if spec.MaxRetries != nil {
		maxRetries = *spec.MaxRetries
	}

	job := &domain.Job{
		ID:         spec.ID,
		Command:    spec.Command,
		State:      domain.JobPending,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := withBusyRetry(func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO jobs (id, command, state, attempts, max_retries, created_at, updated_at)
			VALUES (?, ?, ?, 0, ?, ?, ?)`,
			job.ID, job.Command, job.State, job.MaxRetries,
			formatTime(job.CreatedAt), formatTime(job.UpdatedAt),
		)
		return execErr
	})
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicateID
	}
	if err != nil {
		return nil, fmt.Errorf("store: enqueue job: %w", err)
	}
	return job, nil
}

// LeaseNextDue atomically claims the oldest eligible job for workerID
// and returns it, or (nil, nil) if no job is eligible. A job is
// eligible when it is PENDING, FAILED with next_retry_at due, or
// PROCESSING with an expired lease (locked_at older than leaseTTL) --
// the last case is what lets a second worker recover a job whose
// original worker crashed mid-execution.
func (s *Store) LeaseNextDue(ctx context.Context, workerID string, leaseTTL time.Duration, now time.Time) (*domain.Job, error) {
	expiredBefore := formatTime(now.Add(-leaseTTL))
	nowStr := formatTime(now)

	var job *domain.Job
	err := withBusyRetry(func() error {
		conn, connErr := s.db.Conn(ctx)
		if connErr != nil {
			return connErr
		}
		defer conn.Close()

		// BEGIN IMMEDIATE grabs the writer lock up front, the sqlite
		// analogue of SELECT ... FOR UPDATE: no other connection can
		// interleave a write between the SELECT and the UPDATE below.
		if _, txErr := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); txErr != nil {
			return txErr
		}
		committed := false
		defer func() {
			if !committed {
				conn.ExecContext(ctx, "ROLLBACK")
			}
		}()

		row := conn.QueryRowContext(ctx, `
			UPDATE jobs
			SET state = ?, locked_by = ?, locked_at = ?, attempts = attempts + 1, updated_at = ?
			WHERE id = (
				SELECT id FROM jobs
				WHERE (state = ? OR (state = ? AND next_retry_at <= ?) OR state = ?)
				  AND (locked_by IS NULL OR locked_at < ?)
				ORDER BY created_at ASC, id ASC
				LIMIT 1
			)
			RETURNING `+jobColumns,
			domain.JobProcessing, workerID, nowStr, nowStr,
			domain.JobPending, domain.JobFailed, nowStr, domain.JobProcessing,
			expiredBefore,
		)

		r, scanErr := scanJobRow(row.Scan)
		if errors.Is(scanErr, sql.ErrNoRows) {
			job = nil
			if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
				return err
			}
			committed = true
			return nil
		}
		if scanErr != nil {
			return scanErr
		}

		j, convErr := r.toDomain()
		if convErr != nil {
			return convErr
		}
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return err
		}
		committed = true
		job = j
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: lease next due: %w", err)
	}
	return job, nil
}

// CompleteJob transitions a leased job to COMPLETED and clears its
// lock. It returns domain.ErrNotLeased if workerID does not hold the
// job's current lease (the lease was stolen by a crash-recovery lease).
func (s *Store) CompleteJob(ctx context.Context, jobID, workerID string, now time.Time) error {
	return s.releaseLease(ctx, jobID, workerID, func() (string, []any) {
		return `UPDATE jobs SET state = ?, locked_by = NULL, locked_at = NULL, error_message = NULL, next_retry_at = NULL, updated_at = ?
			WHERE id = ? AND locked_by = ?`,
			[]any{domain.JobCompleted, formatTime(now), jobID, workerID}
	})
}

// FailJob records a failed attempt. If the job's attempts exceed
// max_retries it moves to DEAD (the dead letter queue filter);
// otherwise it moves to FAILED with next_retry_at set by policy.
func (s *Store) FailJob(ctx context.Context, jobID, workerID, errMsg string, now time.Time, nextRetryAt time.Time) error {
	return withBusyRetry(func() error {
		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return txErr
		}
		defer tx.Rollback()

		row := tx.QueryRowContext(ctx, "SELECT attempts, max_retries, locked_by FROM jobs WHERE id = ?", jobID)
		var attempts, maxRetries int
		var lockedBy sql.NullString
		if scanErr := row.Scan(&attempts, &maxRetries, &lockedBy); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return scanErr
		}
		if !lockedBy.Valid || lockedBy.String != workerID {
			return domain.ErrNotLeased
		}

		nextState := domain.JobFailed
		var nextRetry sql.NullString
		if attempts > maxRetries {
			nextState = domain.JobDead
		} else {
			nextRetry = sql.NullString{String: formatTime(nextRetryAt), Valid: true}
		}

		_, execErr := tx.ExecContext(ctx, `
			UPDATE jobs
			SET state = ?, locked_by = NULL, locked_at = NULL, error_message = ?, next_retry_at = ?, updated_at = ?
			WHERE id = ? AND locked_by = ?`,
			nextState, errMsg, nextRetry, formatTime(now), jobID, workerID,
		)
		if execErr != nil {
			return execErr
		}
		return tx.Commit()
	})
}

func (s *Store) releaseLease(ctx context.Context, jobID, workerID string, query func() (string, []any)) error {
	return withBusyRetry(func() error {
		q, args := query()
		res, err := s.db.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			exists, existsErr := s.jobExists(ctx, jobID)
			if existsErr != nil {
				return existsErr
			}
			if !exists {
				return domain.ErrNotFound
			}
			return domain.ErrNotLeased
		}
		return nil
	})
}

func (s *Store) jobExists(ctx context.Context, jobID string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM jobs WHERE id = ?", jobID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReviveDead resets a DEAD job back to PENDING with a fresh attempt
// counter. It returns domain.ErrNotDead if the job is not DEAD.
func (s *Store) ReviveDead(ctx context.Context, jobID string, now time.Time) (*domain.Job, error) {
	var job *domain.Job
	err := withBusyRetry(func() error {
		row := s.db.QueryRowContext(ctx, `
			UPDATE jobs
			SET state = ?, attempts = 0, error_message = NULL, next_retry_at = NULL, updated_at = ?
			WHERE id = ? AND state = ?
			RETURNING `+jobColumns,
			domain.JobPending, formatTime(now), jobID, domain.JobDead,
		)
		r, scanErr := scanJobRow(row.Scan)
		if errors.Is(scanErr, sql.ErrNoRows) {
			exists, existsErr := s.jobExists(ctx, jobID)
			if existsErr != nil {
				return existsErr
			}
			if !exists {
				return domain.ErrNotFound
			}
			return domain.ErrNotDead
		}
		if scanErr != nil {
			return scanErr
		}
		j, convErr := r.toDomain()
		if convErr != nil {
			return convErr
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob returns a single job by id.
func (s *Store) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", jobID)
	r, err := scanJobRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get job: %w", err)
	}
	return r.toDomain()
}

// ListJobs returns jobs in creation order, optionally filtered to a
// single state (DEAD included when state is empty, per the default
// listing covering every job regardless of lifecycle stage) and
// capped to limit rows (0 means unbounded). The cap is applied in the
// query itself so a large table is never fully scanned into memory
// just to be truncated afterward.
func (s *Store) ListJobs(ctx context.Context, state domain.JobState, limit int) ([]*domain.Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs"
	args := []any{}
	if state != "" {
		query += " WHERE state = ?"
		args = append(args, state)
	}
	query += " ORDER BY created_at ASC, id ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		r, scanErr := scanJobRow(rows.Scan)
		if scanErr != nil {
			return nil, scanErr
		}
		j, convErr := r.toDomain()
		if convErr != nil {
			return nil, convErr
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// StatusCounts returns the number of jobs in each state.
func (s *Store) StatusCounts(ctx context.Context) (map[domain.JobState]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT state, COUNT(*) FROM jobs GROUP BY state")
	if err != nil {
		return nil, fmt.Errorf("store: status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.JobState]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[domain.JobState(state)] = n
	}
	return counts, rows.Err()
}
