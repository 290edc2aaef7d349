package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rezkam/queuectl/internal/store"
	"github.com/rezkam/queuectl/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestStore_Compliance(t *testing.T) {
	storetest.Run(t, func() (*store.Store, func()) {
		dir := t.TempDir()
		s, err := store.Open(context.Background(), store.Config{Path: filepath.Join(dir, "queuectl.db")})
		require.NoError(t, err)
		return s, func() { s.Close() }
	})
}
