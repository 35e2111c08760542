package domain

import (
	"fmt"

	"github.com/paulmach/orb"
)

// EntityType identifies the OSM entity class a feature was built from.
type EntityType string

const (
	EntityNode     EntityType = "node"
	EntityWay      EntityType = "way"
	EntityRelation EntityType = "relation"
)

// Valid reports whether t names a known OSM entity class.
func (t EntityType) Valid() bool {
	switch t {
	case EntityNode, EntityWay, EntityRelation:
		return true
	}
	return false
}

// Prefix is the single-letter id prefix used in synthetic feature ids.
func (t EntityType) Prefix() string {
	return string(t[0])
}

// FeatureID builds the synthetic id of an extracted entity, e.g. "n42" or "r7".
func FeatureID(t EntityType, osmID int64) string {
	return fmt.Sprintf("%s%d", t.Prefix(), osmID)
}

// OSMURL returns the osm.org page of an entity.
func OSMURL(t EntityType, osmID int64) string {
	return fmt.Sprintf("https://www.osm.org/%s/%d", t, osmID)
}

// Feature is a single extracted OSM entity with its filtered tags.
// IDs are unique within one extracted collection.
type Feature struct {
	ID       string            `json:"id"`
	OSMURL   string            `json:"osm_url"`
	Name     string            `json:"name"`
	Wikidata string            `json:"wikidata,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
	Geometry orb.Geometry      `json:"-"`
}

// IsPolygonal reports whether the feature can act as an area.
func (f *Feature) IsPolygonal() bool {
	switch f.Geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

// RepresentativePoint returns a point usable for containment tests: the point
// itself for point features, the ring centroid otherwise.
func (f *Feature) RepresentativePoint() orb.Point {
	switch g := f.Geometry.(type) {
	case orb.Point:
		return g
	default:
		return centroid(g)
	}
}

func centroid(g orb.Geometry) orb.Point {
	var sumX, sumY float64
	var n int
	add := func(p orb.Point) {
		sumX += p[0]
		sumY += p[1]
		n++
	}
	switch g := g.(type) {
	case orb.Point:
		return g
	case orb.LineString:
		for _, p := range g {
			add(p)
		}
	case orb.Polygon:
		if len(g) > 0 {
			for _, p := range g[0] {
				add(p)
			}
		}
	case orb.MultiPolygon:
		for _, poly := range g {
			if len(poly) > 0 {
				for _, p := range poly[0] {
					add(p)
				}
			}
		}
	default:
		b := g.Bound()
		return b.Center()
	}
	if n == 0 {
		return orb.Point{}
	}
	return orb.Point{sumX / float64(n), sumY / float64(n)}
}
