package usecase_test

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/place-density/internal/domain"
	"github.com/place-density/internal/usecase"
)

func TestJoinedCollection(t *testing.T) {
	population := int64(3600)
	areas := []domain.JoinedArea{{
		ID:     "w1",
		Name:   "Mitte",
		OSMURL: "https://www.osm.org/way/1",
		Geometry: orb.Polygon{orb.Ring{
			{13.3, 52.5}, {13.4, 52.5}, {13.4, 52.6}, {13.3, 52.6}, {13.3, 52.5},
		}},
		Count:        3,
		SqKm:         12.5,
		CountBySqKm:  0.24,
		Population:   &population,
		CountByPop:   3.0 / 3600,
		Total:        math.NaN(),
		ByArea:       math.NaN(),
		ByPopulation: math.NaN(),
	}}

	fc := usecase.JoinedCollection(areas)
	require.Len(t, fc.Features, 1)

	// NaN must not leak into the JSON encoder
	data, err := fc.MarshalJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	props := fc.Features[0].Properties
	assert.Equal(t, "Mitte", props["name"])
	assert.Equal(t, 3, props["count"])
	assert.Equal(t, int64(3600), props["population"])
	assert.Nil(t, props["total"])
	assert.Equal(t, 12.5, props["sqkm"])
}

func TestPlaceCollection(t *testing.T) {
	places := []domain.Feature{{
		ID:       "n1",
		Name:     "Curry 36",
		OSMURL:   "https://www.osm.org/node/1",
		Geometry: orb.Point{13.35, 52.55},
		Tags:     map[string]string{"amenity": "fast_food", "name": "Curry 36"},
	}}

	fc := usecase.PlaceCollection(places)
	require.Len(t, fc.Features, 1)

	props := fc.Features[0].Properties
	assert.Equal(t, "n1", props["id"])
	assert.Equal(t, "https://www.osm.org/node/1", props["osm_url"])
	assert.Equal(t, "fast_food", props["amenity"])
}

func TestExportGeoJSON(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Pipeline.OutputDir = dir

	uc := usecase.NewPipelineUseCase(cfg, nil, nil, nil, nil, zap.NewNop())
	result := &usecase.PipelineResult{
		RunID:    "run-1",
		Region:   "berlin",
		Versions: []string{"latest"},
		Areas: map[string][]domain.JoinedArea{
			"latest": {{
				ID:       "w1",
				Name:     "Mitte",
				Geometry: orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
			}},
		},
		Places: map[string][]domain.Feature{
			"latest": {{ID: "n1", Geometry: orb.Point{0.5, 0.5}}},
		},
	}

	require.NoError(t, uc.ExportGeoJSON(result))

	for _, name := range []string{"place_latest.geojson", "join_latest.geojson"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)

		fc, err := geojson.UnmarshalFeatureCollection(data)
		require.NoError(t, err, name)
		assert.Len(t, fc.Features, 1, name)
	}
}
