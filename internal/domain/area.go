package domain

import (
	"github.com/paulmach/orb"
)

// JoinedArea is one row of the spatial-join output: an administrative area
// with its aggregated place statistics. Normalized metrics are in [0,1];
// metrics that could not be computed are NaN.
type JoinedArea struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Wikidata string       `json:"wikidata,omitempty"`
	OSMURL   string       `json:"osm_url"`
	Geometry orb.Geometry `json:"-"`

	Count       int     `json:"count"`
	SqKm        float64 `json:"sqkm"`
	CountBySqKm float64 `json:"count_by_sqkm"`

	// Population metrics are present only when population enrichment ran.
	Population *int64  `json:"population,omitempty"`
	CountByPop float64 `json:"count_by_pop,omitempty"`

	Total        float64 `json:"total"`
	ByArea       float64 `json:"by_area"`
	ByPopulation float64 `json:"by_population,omitempty"`
}

// HasPopulation reports whether a population value was resolved for the area.
func (a *JoinedArea) HasPopulation() bool {
	return a.Population != nil
}

// BoundingBox is a lon/lat axis-aligned box: [minLon, minLat, maxLon, maxLat].
type BoundingBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// NewBoundingBox builds a box from the configured four-element slice.
func NewBoundingBox(bounds []float64) (BoundingBox, bool) {
	if len(bounds) != 4 {
		return BoundingBox{}, false
	}
	b := BoundingBox{
		MinLon: bounds[0],
		MinLat: bounds[1],
		MaxLon: bounds[2],
		MaxLat: bounds[3],
	}
	return b, b.Valid()
}

// Valid reports whether the box has ordered bounds inside the WGS84 domain.
func (b BoundingBox) Valid() bool {
	if b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat {
		return false
	}
	return b.MinLon >= -180 && b.MaxLon <= 180 && b.MinLat >= -90 && b.MaxLat <= 90
}

// Bound converts the box to an orb bound.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}
