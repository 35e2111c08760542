package http_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/place-density/internal/config"
	deliveryhttp "github.com/place-density/internal/delivery/http"
	"github.com/place-density/internal/delivery/http/handler"
	"github.com/place-density/internal/domain"
	"github.com/place-density/internal/usecase"
	"github.com/place-density/internal/visualize"
)

func testServer(t *testing.T) *deliveryhttp.Server {
	t.Helper()
	logger := zap.NewNop()
	result := &usecase.PipelineResult{
		RunID:    "run-1",
		Region:   "berlin",
		Versions: []string{"latest"},
		Areas: map[string][]domain.JoinedArea{
			"latest": {{
				ID:     "w1",
				Name:   "Mitte",
				OSMURL: "https://www.osm.org/way/1",
				Geometry: orb.Polygon{orb.Ring{
					{13.3, 52.5}, {13.4, 52.5}, {13.4, 52.6}, {13.3, 52.6}, {13.3, 52.5},
				}},
				Count: 1,
			}},
		},
		Places: map[string][]domain.Feature{
			"latest": {{
				ID:       "n1",
				Name:     "Curry 36",
				OSMURL:   "https://www.osm.org/node/1",
				Geometry: orb.Point{13.35, 52.55},
			}},
		},
	}

	cfg := &config.Config{HTTP: config.HTTPConfig{Host: "127.0.0.1", Port: 0}}
	mapHandler := handler.NewMapHandler(visualize.New(logger), result, logger)
	resultHandler := handler.NewResultHandler(result, logger)
	return deliveryhttp.NewServer(cfg, logger, mapHandler, resultHandler)
}

func TestGetMap(t *testing.T) {
	server := testServer(t)

	resp, err := server.App().Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Place density: berlin")
}

func TestGetVersions(t *testing.T) {
	server := testServer(t)

	resp, err := server.App().Test(httptest.NewRequest("GET", "/api/v1/versions", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, 200, resp.StatusCode)

	var payload struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, []string{"latest"}, payload.Data)
}

func TestGetAreas(t *testing.T) {
	server := testServer(t)

	resp, err := server.App().Test(httptest.NewRequest("GET", "/api/v1/areas/latest", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "geo+json")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(body)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Mitte", fc.Features[0].Properties["name"])
}

func TestGetAreasUnknownVersion(t *testing.T) {
	server := testServer(t)

	resp, err := server.App().Test(httptest.NewRequest("GET", "/api/v1/areas/140101", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 404, resp.StatusCode)
}

func TestGetStats(t *testing.T) {
	server := testServer(t)

	resp, err := server.App().Test(httptest.NewRequest("GET", "/api/v1/stats", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, 200, resp.StatusCode)

	var payload struct {
		Data struct {
			RunID    string `json:"run_id"`
			Region   string `json:"region"`
			Versions map[string]struct {
				Areas  int `json:"areas"`
				Places int `json:"places"`
			} `json:"versions"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "berlin", payload.Data.Region)
	assert.Equal(t, 1, payload.Data.Versions["latest"].Areas)
}

func TestHealth(t *testing.T) {
	server := testServer(t)

	resp, err := server.App().Test(httptest.NewRequest("GET", "/api/v1/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
}
