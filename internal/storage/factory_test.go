package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreMemory(t *testing.T) {
	for _, kind := range []string{"", "memory", " Memory "} {
		store, err := NewStore(kind, "")
		require.NoError(t, err, "kind %q", kind)
		assert.IsType(t, &MemoryStore{}, store, "kind %q", kind)
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("postgres", "")
	assert.Error(t, err)
}

func TestDefaultStoreKindIsConstructible(t *testing.T) {
	store, err := NewStore(DefaultStoreKind(), filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseIfSupported(store) })
	assert.NoError(t, store.Init(context.Background()))
}

func TestCloseIfSupportedIgnoresMemory(t *testing.T) {
	assert.NoError(t, CloseIfSupported(NewMemoryStore()))
}
