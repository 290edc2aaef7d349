package store

import (
	"database/sql"
	"fmt"

	"github.com/rezkam/queuectl/internal/domain"
)

// jobRow mirrors the jobs table's column order, used as the single
// scan target for every query that returns a full job row.
type jobRow struct {
	ID           string
	Command      string
	State        string
	Attempts     int
	MaxRetries   int
	CreatedAt    string
	UpdatedAt    string
	ErrorMessage sql.NullString
	NextRetryAt  sql.NullString
	LockedBy     sql.NullString
	LockedAt     sql.NullString
}

const jobColumns = "id, command, state, attempts, max_retries, created_at, updated_at, error_message, next_retry_at, locked_by, locked_at"

func scanJobRow(scan func(dest ...any) error) (jobRow, error) {
	var r jobRow
	err := scan(
		&r.ID, &r.Command, &r.State, &r.Attempts, &r.MaxRetries,
		&r.CreatedAt, &r.UpdatedAt, &r.ErrorMessage, &r.NextRetryAt,
		&r.LockedBy, &r.LockedAt,
	)
	return r, err
}

func (r jobRow) toDomain() (*domain.Job, error) {
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := parseTime(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	nextRetryAt, err := parseNullTime(r.NextRetryAt)
	if err != nil {
		return nil, fmt.Errorf("parse next_retry_at: %w", err)
	}
	lockedAt, err := parseNullTime(r.LockedAt)
	if err != nil {
		return nil, fmt.Errorf("parse locked_at: %w", err)
	}

	j := &domain.Job{
		ID:          r.ID,
		Command:     r.Command,
		State:       domain.JobState(r.State),
		Attempts:    r.Attempts,
		MaxRetries:  r.MaxRetries,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		NextRetryAt: nextRetryAt,
		LockedAt:    lockedAt,
	}
	if r.ErrorMessage.Valid {
		j.ErrorMessage = &r.ErrorMessage.String
	}
	if r.LockedBy.Valid {
		j.LockedBy = &r.LockedBy.String
	}
	return j, nil
}
