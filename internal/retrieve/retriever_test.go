package retrieve_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/place-density/internal/config"
	"github.com/place-density/internal/retrieve"
)

func testConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{URL: serverURL},
		Pipeline: config.PipelineConfig{
			DataDir: t.TempDir(),
		},
		Regions: map[string]string{
			"doberan": "europe/germany/mecklenburg-vorpommern",
		},
		Versions: map[string]string{
			"latest": "latest.osm.pbf",
			"2021":   "210101.osm.pbf",
		},
	}
}

func TestDownloadURL(t *testing.T) {
	r := retrieve.New(testConfig(t, "https://example.com/"), zap.NewNop())

	url, err := r.DownloadURL("doberan", "2021")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/europe/germany/mecklenburg-vorpommern-210101.osm.pbf", url)
}

func TestDownloadURLUnknownVersion(t *testing.T) {
	r := retrieve.New(testConfig(t, "https://example.com/"), zap.NewNop())

	_, err := r.DownloadURL("doberan", "2019")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2019")
	assert.Contains(t, err.Error(), "doberan")
}

func TestEnsureDataDownloads(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		w.Write([]byte("pbf-bytes"))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL+"/")
	r := retrieve.New(cfg, zap.NewNop())

	paths, err := r.EnsureData(context.Background(), "doberan", []string{"latest"}, "latest")
	require.NoError(t, err)
	require.Len(t, paths, 1)

	expected := filepath.Join(cfg.Pipeline.DataDir, "mecklenburg-vorpommern-latest.osm.pbf")
	assert.Equal(t, expected, paths["latest"])

	data, err := os.ReadFile(paths["latest"])
	require.NoError(t, err)
	assert.Equal(t, "pbf-bytes", string(data))
	assert.Equal(t, int32(1), hits.Load())

	// Second run reuses the file on disk.
	_, err = r.EnsureData(context.Background(), "doberan", []string{"latest"}, "latest")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestEnsureDataIncludesAreaVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("pbf"))
	}))
	defer server.Close()

	r := retrieve.New(testConfig(t, server.URL+"/"), zap.NewNop())

	paths, err := r.EnsureData(context.Background(), "doberan", []string{"2021"}, "latest")
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	assert.Contains(t, paths, "2021")
	assert.Contains(t, paths, "latest")
}

func TestEnsureDataAreaVersionDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("pbf"))
	}))
	defer server.Close()

	r := retrieve.New(testConfig(t, server.URL+"/"), zap.NewNop())

	paths, err := r.EnsureData(context.Background(), "doberan", []string{"2021"}, retrieve.VersionForAreasDisabled)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
	assert.Contains(t, paths, "2021")
}

func TestEnsureDataServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	r := retrieve.New(testConfig(t, server.URL+"/"), zap.NewNop())

	_, err := r.EnsureData(context.Background(), "doberan", []string{"latest"}, "latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
