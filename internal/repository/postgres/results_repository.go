package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/place-density/internal/domain"
	"github.com/place-density/internal/domain/repository"
)

const resultsSchema = `
CREATE TABLE IF NOT EXISTS join_results (
	run_id      UUID        NOT NULL,
	region      TEXT        NOT NULL,
	version     TEXT        NOT NULL,
	area_id     TEXT        NOT NULL,
	name        TEXT        NOT NULL,
	wikidata    TEXT        NOT NULL DEFAULT '',
	geometry    JSONB       NOT NULL,
	count       INTEGER     NOT NULL,
	sqkm        DOUBLE PRECISION,
	by_sqkm     DOUBLE PRECISION,
	population  BIGINT,
	by_pop      DOUBLE PRECISION,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, version, area_id)
)`

type resultsRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewResultsRepository persists joined area statistics, one row per area and
// pipeline run, with geometry stored as GeoJSON.
func NewResultsRepository(db *DB, logger *zap.Logger) repository.ResultRepository {
	return &resultsRepository{
		db:     db,
		logger: logger,
	}
}

func (r *resultsRepository) SaveJoined(
	ctx context.Context,
	runID, region, version string,
	areas []domain.JoinedArea,
) error {
	if _, err := r.db.ExecContext(ctx, resultsSchema); err != nil {
		return fmt.Errorf("ensure results table: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO join_results
			(run_id, region, version, area_id, name, wikidata, geometry,
			 count, sqkm, by_sqkm, population, by_pop, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	now := time.Now()
	for _, area := range areas {
		geometry, err := geojson.NewGeometry(area.Geometry).MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode geometry for %s: %w", area.ID, err)
		}

		_, err = tx.ExecContext(ctx, query,
			runID, region, version, area.ID, area.Name, area.Wikidata, geometry,
			area.Count, nullFloat(area.SqKm), nullFloat(area.CountBySqKm),
			area.Population, nullFloat(area.CountByPop), now,
		)
		if err != nil {
			r.logger.Error("Failed to insert join result",
				zap.String("run_id", runID),
				zap.String("area_id", area.ID),
				zap.Error(err))
			return fmt.Errorf("insert join result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	r.logger.Info("Saved join results",
		zap.String("run_id", runID),
		zap.String("region", region),
		zap.String("version", version),
		zap.Int("areas", len(areas)))
	return nil
}

// nullFloat maps NaN to SQL NULL, since Postgres would otherwise store the
// literal NaN value.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
