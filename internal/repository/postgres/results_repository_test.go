package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/place-density/internal/domain"
	"github.com/place-density/internal/repository/postgres"
)

func setupTestDB(t *testing.T) *postgres.DB {
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping database integration test")
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host,
		envOr("TEST_DB_PORT", "5432"),
		envOr("TEST_DB_USER", "postgres"),
		envOr("TEST_DB_PASSWORD", "postgres"),
		envOr("TEST_DB_NAME", "placedensity_test"),
	)

	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return postgres.NewDBForTest(db, zap.NewNop())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestResultsRepositorySaveJoined(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS join_results")
	require.NoError(t, err)

	population := int64(3600)
	areas := []domain.JoinedArea{
		{
			ID:   "w1",
			Name: "Mitte",
			Geometry: orb.Polygon{orb.Ring{
				{13.3, 52.5}, {13.4, 52.5}, {13.4, 52.6}, {13.3, 52.6}, {13.3, 52.5},
			}},
			Wikidata:    "Q1",
			Count:       3,
			SqKm:        12.5,
			CountBySqKm: 0.24,
			Population:  &population,
			CountByPop:  3.0 / 3600,
		},
		{
			ID:          "w2",
			Name:        "Pankow",
			Geometry:    orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
			Count:       0,
			SqKm:        1,
			CountBySqKm: 0,
			CountByPop:  math.NaN(),
		},
	}

	repo := postgres.NewResultsRepository(db, zap.NewNop())
	runID := "5e0cf371-9c2c-4f5a-a2f4-6a0dcff1f98d"
	require.NoError(t, repo.SaveJoined(ctx, runID, "berlin", "latest", areas))

	var count int
	require.NoError(t, db.GetContext(ctx, &count,
		"SELECT count(*) FROM join_results WHERE run_id = $1", runID))
	assert.Equal(t, 2, count)

	// NaN metrics land as NULL
	var byPop sql.NullFloat64
	require.NoError(t, db.GetContext(ctx, &byPop,
		"SELECT by_pop FROM join_results WHERE run_id = $1 AND area_id = 'w2'", runID))
	assert.False(t, byPop.Valid)
}
