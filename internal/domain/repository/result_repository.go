package repository

import (
	"context"

	"github.com/place-density/internal/domain"
)

// ResultRepository persists joined area statistics for downstream consumers.
type ResultRepository interface {
	SaveJoined(ctx context.Context, runID, region, version string, areas []domain.JoinedArea) error
}
