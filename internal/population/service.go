package population

import (
	"context"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/place-density/internal/domain/repository"
	apperrors "github.com/place-density/internal/pkg/errors"
)

// Service resolves populations for wikidata ids, consulting the cache first
// and fetching missing ids from the remote source in chunks.
type Service struct {
	source repository.PopulationRepository
	cache  repository.PopulationCache
	chunk  int
	logger *zap.Logger
}

func NewService(
	source repository.PopulationRepository,
	cache repository.PopulationCache,
	chunk int,
	logger *zap.Logger,
) *Service {
	return &Service{
		source: source,
		cache:  cache,
		chunk:  chunk,
		logger: logger,
	}
}

// GetPopulations returns populations for the given wikidata ids. Ids without
// a population claim map to NaN. Newly fetched values, including negative
// results, are written back to the cache.
func (s *Service) GetPopulations(ctx context.Context, ids []string) (map[string]float64, error) {
	cached, err := s.cache.Load(ctx)
	if err != nil {
		return nil, apperrors.ErrPopulationLookup.WithDetails(map[string]interface{}{"error": err.Error()})
	}

	var missing []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}

	s.logger.Info("Resolving populations",
		zap.Int("ids", len(seen)),
		zap.Int("cached", len(seen)-len(missing)),
		zap.Int("missing", len(missing)))

	if len(missing) > 0 {
		for start := 0; start < len(missing); start += s.chunk {
			end := min(start+s.chunk, len(missing))
			fetched, err := s.source.FetchPopulations(ctx, missing[start:end])
			if err != nil {
				return nil, apperrors.ErrPopulationLookup.WithDetails(map[string]interface{}{"error": err.Error()})
			}
			for id, value := range fetched {
				cached[id] = value
			}
		}

		if err := s.cache.Store(ctx, cached); err != nil {
			return nil, apperrors.ErrPopulationLookup.WithDetails(map[string]interface{}{"error": err.Error()})
		}
	}

	populations := make(map[string]float64, len(seen))
	for id := range seen {
		value, ok := cached[id]
		if !ok || value == NullValue {
			populations[id] = math.NaN()
			continue
		}
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			s.logger.Warn("Discarding unparsable population value",
				zap.String("wikidata", id),
				zap.String("value", value))
			populations[id] = math.NaN()
			continue
		}
		populations[id] = parsed
	}
	return populations, nil
}
