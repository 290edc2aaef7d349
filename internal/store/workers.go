package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rezkam/queuectl/internal/domain"
)

// RegisterWorker inserts or refreshes a worker's supervisory record as RUNNING.
func (s *Store) RegisterWorker(ctx context.Context, workerID string, now time.Time) error {
	return withBusyRetry(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO workers (worker_id, started_at, last_heartbeat, status)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(worker_id) DO UPDATE SET
				started_at = excluded.started_at,
				last_heartbeat = excluded.last_heartbeat,
				status = excluded.status`,
			workerID, formatTime(now), formatTime(now), domain.WorkerRunning,
		)
		return err
	})
}

// Heartbeat refreshes a worker's last_heartbeat timestamp.
func (s *Store) Heartbeat(ctx context.Context, workerID string, now time.Time) error {
	return withBusyRetry(func() error {
		res, err := s.db.ExecContext(ctx,
			"UPDATE workers SET last_heartbeat = ? WHERE worker_id = ?",
			formatTime(now), workerID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// MarkStopped marks a worker STOPPED, recording its final heartbeat.
func (s *Store) MarkStopped(ctx context.Context, workerID string, now time.Time) error {
	return withBusyRetry(func() error {
		_, err := s.db.ExecContext(ctx,
			"UPDATE workers SET status = ?, last_heartbeat = ? WHERE worker_id = ?",
			domain.WorkerStopped, formatTime(now), workerID,
		)
		return err
	})
}

// ActiveWorkers returns every worker whose last heartbeat is within
// staleAfter of now and whose status is RUNNING.
func (s *Store) ActiveWorkers(ctx context.Context, now time.Time, staleAfter time.Duration) ([]*domain.WorkerRecord, error) {
	cutoff := formatTime(now.Add(-staleAfter))
	rows, err := s.db.QueryContext(ctx, `
		SELECT worker_id, started_at, last_heartbeat, status
		FROM workers
		WHERE status = ? AND last_heartbeat >= ?
		ORDER BY worker_id ASC`,
		domain.WorkerRunning, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("store: active workers: %w", err)
	}
	defer rows.Close()

	var workers []*domain.WorkerRecord
	for rows.Next() {
		var w domain.WorkerRecord
		var startedAt, lastHeartbeat, status string
		if err := rows.Scan(&w.WorkerID, &startedAt, &lastHeartbeat, &status); err != nil {
			return nil, err
		}
		if w.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if w.LastHeartbeat, err = parseTime(lastHeartbeat); err != nil {
			return nil, err
		}
		w.Status = domain.WorkerStatus(status)
		workers = append(workers, &w)
	}
	return workers, rows.Err()
}

// GetWorker returns a single worker record.
func (s *Store) GetWorker(ctx context.Context, workerID string) (*domain.WorkerRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT worker_id, started_at, last_heartbeat, status FROM workers WHERE worker_id = ?",
		workerID,
	)
	var w domain.WorkerRecord
	var startedAt, lastHeartbeat, status string
	err := row.Scan(&w.WorkerID, &startedAt, &lastHeartbeat, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if w.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if w.LastHeartbeat, err = parseTime(lastHeartbeat); err != nil {
		return nil, err
	}
	w.Status = domain.WorkerStatus(status)
	return &w, nil
}
