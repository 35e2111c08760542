package population

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileCacheLoadMissing(t *testing.T) {
	cache := NewFileCache(filepath.Join(t.TempDir(), "populations.json"), zap.NewNop())

	populations, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, populations)
}

func TestFileCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "populations.json")
	cache := NewFileCache(path, zap.NewNop())
	ctx := context.Background()

	want := map[string]string{"Q64": "3755251", "Q999": NullValue}
	require.NoError(t, cache.Store(ctx, want))

	got, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileCacheLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "populations.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	cache := NewFileCache(path, zap.NewNop())
	_, err := cache.Load(context.Background())
	assert.Error(t, err)
}
