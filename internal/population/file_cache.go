package population

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/place-density/internal/domain/repository"
)

type fileCache struct {
	path   string
	logger *zap.Logger
}

// NewFileCache stores population lookups as a JSON object on disk, keyed by
// wikidata id. Null markers are persisted so ids without a population claim
// are not queried twice.
func NewFileCache(path string, logger *zap.Logger) repository.PopulationCache {
	return &fileCache{
		path:   path,
		logger: logger,
	}
}

func (c *fileCache) Load(ctx context.Context) (map[string]string, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read population cache: %w", err)
	}

	populations := make(map[string]string)
	if err := json.Unmarshal(data, &populations); err != nil {
		return nil, fmt.Errorf("failed to parse population cache %s: %w", c.path, err)
	}

	c.logger.Debug("Loaded population cache",
		zap.String("path", c.path),
		zap.Int("entries", len(populations)))
	return populations, nil
}

func (c *fileCache) Store(ctx context.Context, populations map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(populations, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode population cache: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write population cache: %w", err)
	}

	c.logger.Debug("Stored population cache",
		zap.String("path", c.path),
		zap.Int("entries", len(populations)))
	return nil
}
