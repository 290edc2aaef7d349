// Package settings implements the Configuration Service: the two
// store-backed keys (max_retries, backoff_base) that change job
// defaults without a process restart.
package settings

import (
	"context"
	"errors"
	"strconv"

	"github.com/rezkam/queuectl/internal/domain"
)

const (
	KeyMaxRetries  = "max_retries"
	KeyBackoffBase = "backoff_base"

	DefaultMaxRetries  = 3
	DefaultBackoffBase = 2
)

// store is the subset of *store.Store the service depends on.
type store interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Service reads and writes the two recognized configuration keys.
// Values are stored as strings and parsed on read; a running job is
// never modified mid-flight by a change made here.
type Service struct {
	store store
}

func New(s store) *Service {
	return &Service{store: s}
}

// MaxRetries returns the configured default, or DefaultMaxRetries if
// the key has never been set.
func (s *Service) MaxRetries(ctx context.Context) (int, error) {
	raw, err := s.store.GetSetting(ctx, KeyMaxRetries)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidConfig) {
			return DefaultMaxRetries, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.ErrInvalidConfig
	}
	return n, nil
}

// BackoffBase returns the configured base, or DefaultBackoffBase if
// the key has never been set.
func (s *Service) BackoffBase(ctx context.Context) (int, error) {
	raw, err := s.store.GetSetting(ctx, KeyBackoffBase)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidConfig) {
			return DefaultBackoffBase, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 2 {
		return 0, domain.ErrInvalidConfig
	}
	return n, nil
}

// Set validates and persists a value for one of the recognized keys.
// Any other key returns domain.ErrInvalidConfig.
func (s *Service) Set(ctx context.Context, key, value string) error {
	switch key {
	case KeyMaxRetries:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return domain.ErrInvalidConfig
		}
	case KeyBackoffBase:
		n, err := strconv.Atoi(value)
		if err != nil || n < 2 {
			return domain.ErrInvalidConfig
		}
	default:
		return domain.ErrInvalidConfig
	}
	return s.store.SetSetting(ctx, key, value)
}

// Snapshot returns both recognized keys' current effective values,
// for status reporting.
type Snapshot struct {
	MaxRetries  int
	BackoffBase int
}

func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	mr, err := s.MaxRetries(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	bb, err := s.BackoffBase(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{MaxRetries: mr, BackoffBase: bb}, nil
}
