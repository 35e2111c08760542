package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/place-density/internal/config"
	"github.com/place-density/internal/domain/repository"
	"github.com/place-density/internal/extract"
	"github.com/place-density/internal/population"
	"github.com/place-density/internal/repository/cache"
	"github.com/place-density/internal/repository/postgres"
	"github.com/place-density/internal/retrieve"
	"github.com/place-density/internal/usecase"
)

// buildPipeline wires the pipeline use case from the configuration. The
// returned cleanup closes whatever connections were opened.
func buildPipeline(cfg *config.Config, log *zap.Logger, exportPostgres bool) (*usecase.PipelineUseCase, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Population cache: Redis when configured, the JSON file otherwise.
	var popCache repository.PopulationCache
	if cfg.RedisEnabled() {
		redisClient, err := cache.NewRedis(&cfg.Redis, log)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Failed to close Redis connection", zap.Error(err))
			}
		})
		popCache = cache.NewPopulationCache(redisClient, cfg.Redis.CacheTTL)
	} else {
		popCache = population.NewFileCache(cfg.Pipeline.PopulationCache, log)
	}

	var results repository.ResultRepository
	if exportPostgres {
		if !cfg.DatabaseEnabled() {
			return nil, cleanup, fmt.Errorf("postgres export requested but no [database] host configured")
		}
		db, err := postgres.New(&cfg.Database, log)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() {
			if err := db.Close(); err != nil {
				log.Error("Failed to close PostgreSQL connection", zap.Error(err))
			}
		})
		results = postgres.NewResultsRepository(db, log)
	}

	populations := population.NewService(
		population.NewWikidataClient(cfg.Pipeline.WikidataURL, log),
		popCache,
		cfg.Pipeline.PopulationChunk,
		log,
	)

	uc := usecase.NewPipelineUseCase(
		cfg,
		retrieve.New(cfg, log),
		extract.New(log),
		populations,
		results,
		log,
	)
	return uc, cleanup, nil
}
