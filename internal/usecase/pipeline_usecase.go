package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/place-density/internal/config"
	"github.com/place-density/internal/domain"
	"github.com/place-density/internal/domain/repository"
	apperrors "github.com/place-density/internal/pkg/errors"
	"github.com/place-density/internal/prepare"
	"github.com/place-density/internal/retrieve"
)

// DataRetriever makes sure OSM extracts are available on disk.
type DataRetriever interface {
	EnsureData(ctx context.Context, region string, versions []string, versionForAreas string) (map[string]string, error)
}

// FeatureExtractor reads filtered features out of an OSM extract.
type FeatureExtractor interface {
	Extract(ctx context.Context, path string, filter config.FilterConfig) ([]domain.Feature, error)
}

// PopulationResolver maps wikidata ids to populations, NaN when unknown.
type PopulationResolver interface {
	GetPopulations(ctx context.Context, ids []string) (map[string]float64, error)
}

// PipelineOptions selects what a run processes.
type PipelineOptions struct {
	Region          string
	Versions        []string
	VersionForAreas string
	WithPopulations bool
}

// PipelineResult carries the per-version outputs of one run. Versions lists
// the versions that produced data, in request order.
type PipelineResult struct {
	RunID    string
	Region   string
	Versions []string
	Areas    map[string][]domain.JoinedArea
	Places   map[string][]domain.Feature
}

// PipelineUseCase orchestrates the full run: download, extraction, clipping,
// the spatial join, and the optional population enrichment and export.
type PipelineUseCase struct {
	cfg         *config.Config
	retriever   DataRetriever
	extractor   FeatureExtractor
	populations PopulationResolver
	results     repository.ResultRepository
	logger      *zap.Logger
}

func NewPipelineUseCase(
	cfg *config.Config,
	retriever DataRetriever,
	extractor FeatureExtractor,
	populations PopulationResolver,
	results repository.ResultRepository,
	logger *zap.Logger,
) *PipelineUseCase {
	return &PipelineUseCase{
		cfg:         cfg,
		retriever:   retriever,
		extractor:   extractor,
		populations: populations,
		results:     results,
		logger:      logger,
	}
}

func (uc *PipelineUseCase) Run(ctx context.Context, opts PipelineOptions) (*PipelineResult, error) {
	regionCfg, ok := uc.cfg.RegionConfigs[opts.Region]
	if !ok {
		return nil, apperrors.ErrUnknownRegion.WithDetails(map[string]interface{}{
			"region": opts.Region,
		})
	}

	paths, err := uc.retriever.EnsureData(ctx, opts.Region, opts.Versions, opts.VersionForAreas)
	if err != nil {
		return nil, err
	}

	// With a pinned area version the boundaries are extracted once and
	// shared across versions; otherwise each version supplies its own.
	shareAreas := opts.VersionForAreas != retrieve.VersionForAreasDisabled
	var sharedAreas []domain.Feature
	if shareAreas {
		sharedAreas, err = uc.prepareAreas(ctx, paths[opts.VersionForAreas], regionCfg)
		if err != nil {
			return nil, err
		}
	}

	result := &PipelineResult{
		RunID:  uuid.New().String(),
		Region: opts.Region,
		Areas:  make(map[string][]domain.JoinedArea, len(opts.Versions)),
		Places: make(map[string][]domain.Feature, len(opts.Versions)),
	}

	for _, version := range opts.Versions {
		areas := sharedAreas
		if !shareAreas {
			if areas, err = uc.prepareAreas(ctx, paths[version], regionCfg); err != nil {
				return nil, err
			}
		}

		places, err := uc.extractor.Extract(ctx, paths[version], regionCfg.Places)
		if err != nil {
			return nil, err
		}
		places = prepare.ClipPlacesToAreas(places, areas)
		if len(places) == 0 {
			uc.logger.Warn("No places matched, skipping version",
				zap.String("region", opts.Region),
				zap.String("version", version))
			continue
		}

		var populations map[string]float64
		if opts.WithPopulations {
			populations, err = uc.populations.GetPopulations(ctx, wikidataIDs(areas))
			if err != nil {
				return nil, err
			}
		}

		result.Versions = append(result.Versions, version)
		result.Areas[version] = prepare.Join(areas, places, populations, uc.logger)
		result.Places[version] = places
	}

	if len(result.Versions) == 0 {
		return nil, apperrors.ErrNoData.WithDetails(map[string]interface{}{
			"region":   opts.Region,
			"versions": opts.Versions,
		})
	}

	if uc.results != nil {
		for _, version := range result.Versions {
			if err := uc.results.SaveJoined(ctx, result.RunID, opts.Region, version, result.Areas[version]); err != nil {
				return nil, apperrors.ErrExportFailed.WithDetails(map[string]interface{}{
					"version": version,
					"error":   err.Error(),
				})
			}
		}
	}

	uc.logger.Info("Pipeline run finished",
		zap.String("run_id", result.RunID),
		zap.String("region", opts.Region),
		zap.Strings("versions", result.Versions))
	return result, nil
}

// prepareAreas extracts the admin boundaries and applies the configured
// bounding box and tag-mask clips.
func (uc *PipelineUseCase) prepareAreas(ctx context.Context, path string, regionCfg config.RegionConfig) ([]domain.Feature, error) {
	areas, err := uc.extractor.Extract(ctx, path, regionCfg.Areas.Filter())
	if err != nil {
		return nil, err
	}

	if regionCfg.Clip.HasBBox() {
		box, ok := domain.NewBoundingBox(regionCfg.Clip.BBox)
		if !ok {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidBBox, regionCfg.Clip.BBox)
		}
		areas = prepare.ClipAreasToBBox(areas, box, uc.logger)
	}
	if regionCfg.Clip.HasMask() {
		mask, err := uc.extractor.Extract(ctx, path, regionCfg.Clip.Filter())
		if err != nil {
			return nil, err
		}
		areas = prepare.ClipAreasToMask(areas, mask, uc.logger)
	}
	return areas, nil
}

func wikidataIDs(areas []domain.Feature) []string {
	ids := make([]string, 0, len(areas))
	for _, area := range areas {
		if area.Wikidata != "" {
			ids = append(ids, area.Wikidata)
		}
	}
	return ids
}
