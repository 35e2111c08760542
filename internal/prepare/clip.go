package prepare

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"

	"github.com/place-density/internal/domain"
)

// ClipAreasToBBox clips area geometries to the bounding box. Areas whose
// clipped geometry is no longer polygonal (fully outside, or reduced to an
// edge) are dropped, mirroring a geometry-type-preserving clip.
func ClipAreasToBBox(areas []domain.Feature, box domain.BoundingBox, logger *zap.Logger) []domain.Feature {
	logger.Info("Clipping areas to bounding box",
		zap.Float64("min_lon", box.MinLon),
		zap.Float64("min_lat", box.MinLat),
		zap.Float64("max_lon", box.MaxLon),
		zap.Float64("max_lat", box.MaxLat),
	)
	bound := box.Bound()
	out := make([]domain.Feature, 0, len(areas))
	for _, area := range areas {
		clipped := clip.Geometry(bound, area.Geometry)
		if clipped == nil || !polygonal(clipped) {
			continue
		}
		area.Geometry = clipped
		out = append(out, area)
	}
	return out
}

// ClipAreasToMask keeps areas that intersect any mask feature, cropped to the
// mask's bounding box.
func ClipAreasToMask(areas, mask []domain.Feature, logger *zap.Logger) []domain.Feature {
	logger.Info("Clipping areas to tag mask", zap.Int("mask_features", len(mask)))
	polygonalMask := make([]domain.Feature, 0, len(mask))
	maskBound := orb.Bound{Min: orb.Point{180, 90}, Max: orb.Point{-180, -90}}
	for _, feature := range mask {
		if !feature.IsPolygonal() {
			continue
		}
		polygonalMask = append(polygonalMask, feature)
		maskBound = maskBound.Union(feature.Geometry.Bound())
	}
	if len(polygonalMask) == 0 {
		return nil
	}

	out := make([]domain.Feature, 0, len(areas))
	for _, area := range areas {
		intersects := false
		for _, feature := range polygonalMask {
			if featuresIntersect(area, feature) {
				intersects = true
				break
			}
		}
		if !intersects {
			continue
		}
		clipped := clip.Geometry(maskBound, area.Geometry)
		if clipped == nil || !polygonal(clipped) {
			continue
		}
		area.Geometry = clipped
		out = append(out, area)
	}
	return out
}

// ClipPlacesToAreas keeps places whose representative point falls inside at
// least one area.
func ClipPlacesToAreas(places, areas []domain.Feature) []domain.Feature {
	out := make([]domain.Feature, 0, len(places))
	for _, place := range places {
		point := place.RepresentativePoint()
		for _, area := range areas {
			if GeometryContains(area.Geometry, point) {
				out = append(out, place)
				break
			}
		}
	}
	return out
}

// GeometryContains reports whether a polygonal geometry contains the point.
func GeometryContains(g orb.Geometry, p orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	}
	return false
}

func polygonal(g orb.Geometry) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return len(g) > 0 && len(g[0]) >= 4
	case orb.MultiPolygon:
		return len(g) > 0
	}
	return false
}

// featuresIntersect approximates polygon intersection: overlapping bounds
// plus one geometry holding a vertex or the representative point of the
// other.
func featuresIntersect(a, b domain.Feature) bool {
	if !a.Geometry.Bound().Intersects(b.Geometry.Bound()) {
		return false
	}
	if GeometryContains(b.Geometry, a.RepresentativePoint()) ||
		GeometryContains(a.Geometry, b.RepresentativePoint()) {
		return true
	}
	for _, vertex := range outerVertices(a.Geometry) {
		if GeometryContains(b.Geometry, vertex) {
			return true
		}
	}
	for _, vertex := range outerVertices(b.Geometry) {
		if GeometryContains(a.Geometry, vertex) {
			return true
		}
	}
	return false
}

func outerVertices(g orb.Geometry) []orb.Point {
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) > 0 {
			return g[0]
		}
	case orb.MultiPolygon:
		var points []orb.Point
		for _, poly := range g {
			if len(poly) > 0 {
				points = append(points, poly[0]...)
			}
		}
		return points
	}
	return nil
}
