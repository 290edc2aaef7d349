package settings_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rezkam/queuectl/internal/domain"
	"github.com/rezkam/queuectl/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values map[string]string
	// getErr, when set, is returned by GetSetting for every key instead
	// of the usual lookup, simulating a genuine store fault.
	getErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) GetSetting(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", domain.ErrInvalidConfig
	}
	return v, nil
}

func (f *fakeStore) SetSetting(_ context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

func TestService_Defaults(t *testing.T) {
	svc := settings.New(newFakeStore())
	ctx := context.Background()

	mr, err := svc.MaxRetries(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultMaxRetries, mr)

	bb, err := svc.BackoffBase(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultBackoffBase, bb)
}

func TestService_SetAndRead(t *testing.T) {
	svc := settings.New(newFakeStore())
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, settings.KeyBackoffBase, "4"))
	bb, err := svc.BackoffBase(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, bb)
}

func TestService_SetUnknownKey(t *testing.T) {
	svc := settings.New(newFakeStore())
	err := svc.Set(context.Background(), "not_a_key", "1")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestService_SetInvalidValue(t *testing.T) {
	svc := settings.New(newFakeStore())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Set(ctx, settings.KeyBackoffBase, "1"), domain.ErrInvalidConfig)
	assert.ErrorIs(t, svc.Set(ctx, settings.KeyMaxRetries, "-1"), domain.ErrInvalidConfig)
	assert.ErrorIs(t, svc.Set(ctx, settings.KeyBackoffBase, "nope"), domain.ErrInvalidConfig)
}

func TestService_StoreFaultPropagates(t *testing.T) {
	storeErr := errors.New("disk full")
	fs := newFakeStore()
	fs.getErr = storeErr
	svc := settings.New(fs)
	ctx := context.Background()

	_, err := svc.MaxRetries(ctx)
	assert.ErrorIs(t, err, storeErr)
	assert.False(t, errors.Is(err, domain.ErrInvalidConfig))

	_, err = svc.BackoffBase(ctx)
	assert.ErrorIs(t, err, storeErr)
	assert.False(t, errors.Is(err, domain.ErrInvalidConfig))

	_, err = svc.Snapshot(ctx)
	assert.ErrorIs(t, err, storeErr)
}
