package prepare

import (
	"math"

	"github.com/paulmach/orb/geo"
	"go.uber.org/zap"

	"github.com/place-density/internal/domain"
)

// Join spatially joins places into areas and computes the per-area
// statistics: place count, geodesic area in km², density, and optional
// population-normalized density. Populations may be nil when enrichment is
// disabled; individual population values may be NaN for areas Wikidata has
// no claim for.
func Join(areas, places []domain.Feature, populations map[string]float64, logger *zap.Logger) []domain.JoinedArea {
	joined := make([]domain.JoinedArea, 0, len(areas))
	seen := make(map[string]struct{}, len(areas))

	for _, area := range areas {
		if _, dup := seen[area.ID]; dup {
			continue
		}
		seen[area.ID] = struct{}{}

		row := domain.JoinedArea{
			ID:           area.ID,
			Name:         area.Name,
			Wikidata:     area.Wikidata,
			OSMURL:       area.OSMURL,
			Geometry:     area.Geometry,
			CountByPop:   math.NaN(),
			ByPopulation: math.NaN(),
		}

		for _, place := range places {
			if GeometryContains(area.Geometry, place.RepresentativePoint()) {
				row.Count++
			}
		}

		row.SqKm = math.Abs(geo.Area(area.Geometry)) / 1_000_000
		if row.SqKm > 0 {
			row.CountBySqKm = float64(row.Count) / row.SqKm
		} else {
			row.CountBySqKm = math.NaN()
		}

		if populations != nil && area.Wikidata != "" {
			if population, ok := populations[area.Wikidata]; ok && !math.IsNaN(population) {
				value := int64(population)
				row.Population = &value
				// population 0 would divide to +Inf; keep it NaN instead
				if population > 0 {
					row.CountByPop = float64(row.Count) / population
				}
			}
		}

		joined = append(joined, row)
	}

	normalize(joined, func(a *domain.JoinedArea) float64 { return float64(a.Count) },
		func(a *domain.JoinedArea, v float64) { a.Total = v })
	normalize(joined, func(a *domain.JoinedArea) float64 { return a.CountBySqKm },
		func(a *domain.JoinedArea, v float64) { a.ByArea = v })
	if populations != nil {
		normalize(joined, func(a *domain.JoinedArea) float64 { return a.CountByPop },
			func(a *domain.JoinedArea, v float64) { a.ByPopulation = v })
	}

	logger.Info("Joined places into areas",
		zap.Int("areas", len(joined)),
		zap.Int("places", len(places)),
	)
	return joined
}

// normalize min-max scales a metric into [0,1] across the area set. NaN
// inputs stay NaN; a constant metric normalizes to NaN as well (0/0).
func normalize(areas []domain.JoinedArea, get func(*domain.JoinedArea) float64, set func(*domain.JoinedArea, float64)) {
	min, max := math.Inf(1), math.Inf(-1)
	for i := range areas {
		v := get(&areas[i])
		if math.IsNaN(v) {
			continue
		}
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	span := max - min
	for i := range areas {
		v := get(&areas[i])
		if math.IsNaN(v) || span <= 0 {
			set(&areas[i], math.NaN())
			continue
		}
		set(&areas[i], (v-min)/span)
	}
}
