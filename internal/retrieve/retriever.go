package retrieve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/place-density/internal/config"
	apperrors "github.com/place-density/internal/pkg/errors"
)

// VersionForAreasDisabled ties the area extraction to each requested node
// version instead of a single fixed version.
const VersionForAreasDisabled = "false"

// Retriever downloads OSM extracts and memoizes them on disk: a file that
// already exists for a region/version pair is never downloaded again.
type Retriever struct {
	httpClient *http.Client
	cfg        *config.Config
	logger     *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Retriever {
	timeout := cfg.Server.RequestTimeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &Retriever{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// DownloadURL joins the download server with the region path and version suffix.
func (r *Retriever) DownloadURL(region, version string) (string, error) {
	regionPath, ok := r.cfg.Regions[region]
	if !ok {
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownRegion, region)
	}
	suffix, ok := r.cfg.Versions[version]
	if !ok {
		return "", fmt.Errorf("%w: version %q is not defined for region %q, forgot to add it to the config file?",
			apperrors.ErrUnknownVersion, version, region)
	}
	base, err := url.Parse(r.cfg.Server.URL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	ref, err := url.Parse(fmt.Sprintf("%s-%s", regionPath, suffix))
	if err != nil {
		return "", fmt.Errorf("invalid region path: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// localPath is <dataDir>/<last region path segment>-<version suffix>.
func (r *Retriever) localPath(region, version string) (string, error) {
	regionPath, ok := r.cfg.Regions[region]
	if !ok {
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownRegion, region)
	}
	suffix, ok := r.cfg.Versions[version]
	if !ok {
		return "", fmt.Errorf("%w: version %q is not defined for region %q, forgot to add it to the config file?",
			apperrors.ErrUnknownVersion, version, region)
	}
	segments := strings.Split(regionPath, "/")
	filename := fmt.Sprintf("%s-%s", segments[len(segments)-1], suffix)
	return filepath.Join(r.cfg.Pipeline.DataDir, filename), nil
}

// EnsureData makes sure every requested version of the region extract is on
// disk and returns the path per version. The area version is included unless
// it is disabled.
func (r *Retriever) EnsureData(ctx context.Context, region string, versions []string, versionForAreas string) (map[string]string, error) {
	wanted := make(map[string]struct{}, len(versions)+1)
	for _, version := range versions {
		wanted[version] = struct{}{}
	}
	if versionForAreas != VersionForAreasDisabled {
		wanted[versionForAreas] = struct{}{}
	}

	if err := os.MkdirAll(r.cfg.Pipeline.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	paths := make(map[string]string, len(wanted))
	for version := range wanted {
		path, err := r.localPath(region, version)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err == nil {
			r.logger.Info("Extract already exists, skipping download",
				zap.String("region", region),
				zap.String("version", version),
				zap.String("path", path),
			)
			paths[version] = path
			continue
		}
		downloadURL, err := r.DownloadURL(region, version)
		if err != nil {
			return nil, err
		}
		r.logger.Info("Starting download",
			zap.String("region", region),
			zap.String("version", version),
			zap.String("url", downloadURL),
		)
		if err := r.download(ctx, downloadURL, path); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrDownloadFailed, downloadURL, err)
		}
		r.logger.Info("Downloaded extract", zap.String("path", path))
		paths[version] = path
	}
	return paths, nil
}

// download streams the response body to a temp file and renames it into
// place, so an interrupted download never poisons the memo.
func (r *Retriever) download(ctx context.Context, downloadURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
