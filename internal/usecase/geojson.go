package usecase

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/place-density/internal/domain"
)

// PlaceCollection converts extracted places to GeoJSON.
func PlaceCollection(places []domain.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, place := range places {
		f := geojson.NewFeature(place.Geometry)
		f.Properties["id"] = place.ID
		f.Properties["osm_url"] = place.OSMURL
		if place.Name != "" {
			f.Properties["name"] = place.Name
		}
		for key, value := range place.Tags {
			f.Properties[key] = value
		}
		fc.Append(f)
	}
	return fc
}

// JoinedCollection converts joined areas to GeoJSON. NaN metrics become JSON
// null, since encoding/json rejects NaN outright.
func JoinedCollection(areas []domain.JoinedArea) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, area := range areas {
		f := geojson.NewFeature(area.Geometry)
		f.Properties["id"] = area.ID
		f.Properties["name"] = area.Name
		f.Properties["osm_url"] = area.OSMURL
		if area.Wikidata != "" {
			f.Properties["wikidata"] = area.Wikidata
		}
		f.Properties["count"] = area.Count
		setMetric(f.Properties, "sqkm", area.SqKm)
		setMetric(f.Properties, "count_by_sqkm", area.CountBySqKm)
		if area.Population != nil {
			f.Properties["population"] = *area.Population
		}
		setMetric(f.Properties, "count_by_population", area.CountByPop)
		setMetric(f.Properties, "total", area.Total)
		setMetric(f.Properties, "by_area", area.ByArea)
		setMetric(f.Properties, "by_population", area.ByPopulation)
		fc.Append(f)
	}
	return fc
}

func setMetric(props geojson.Properties, key string, value float64) {
	if math.IsNaN(value) {
		props[key] = nil
		return
	}
	props[key] = value
}

// ExportGeoJSON writes the per-version place and join collections to the
// output directory.
func (uc *PipelineUseCase) ExportGeoJSON(result *PipelineResult) error {
	outputDir := uc.cfg.Pipeline.OutputDir
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, version := range result.Versions {
		files := map[string]*geojson.FeatureCollection{
			fmt.Sprintf("place_%s.geojson", version): PlaceCollection(result.Places[version]),
			fmt.Sprintf("join_%s.geojson", version):  JoinedCollection(result.Areas[version]),
		}
		for name, fc := range files {
			data, err := fc.MarshalJSON()
			if err != nil {
				return fmt.Errorf("encode %s: %w", name, err)
			}
			path := filepath.Join(outputDir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
			uc.logger.Info("Wrote GeoJSON", zap.String("path", path))
		}
	}
	return nil
}
