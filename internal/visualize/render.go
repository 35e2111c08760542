package visualize

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	apperrors "github.com/place-density/internal/pkg/errors"
	"github.com/place-density/internal/usecase"
)

// Renderer builds the interactive map page: a choropleth of the joined
// areas with a version slider, metric switch and place markers.
type Renderer struct {
	tmpl   *template.Template
	logger *zap.Logger
}

func New(logger *zap.Logger) *Renderer {
	return &Renderer{
		tmpl:   template.Must(template.New("map").Parse(mapTemplate)),
		logger: logger,
	}
}

type versionData struct {
	Version string
	Areas   template.JS
	Places  template.JS
}

type pageData struct {
	Region   string
	Versions []versionData
	Metrics  []string
	MaxIndex int
}

// Render produces the map page for a pipeline result.
func (r *Renderer) Render(result *usecase.PipelineResult) ([]byte, error) {
	if result == nil || len(result.Versions) == 0 {
		return nil, apperrors.ErrNoData.WithDetails(map[string]interface{}{
			"reason": "nothing to plot",
		})
	}

	page := pageData{
		Region:   result.Region,
		Metrics:  []string{"total", "by_area"},
		MaxIndex: len(result.Versions) - 1,
	}
	if hasPopulations(result) {
		page.Metrics = append(page.Metrics, "by_population")
	}

	for _, version := range result.Versions {
		areas, err := usecase.JoinedCollection(result.Areas[version]).MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode areas for %s: %w", version, err)
		}
		places, err := usecase.PlaceCollection(result.Places[version]).MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode places for %s: %w", version, err)
		}
		page.Versions = append(page.Versions, versionData{
			Version: version,
			Areas:   template.JS(areas),
			Places:  template.JS(places),
		})
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render map: %w", err)
	}

	r.logger.Info("Rendered map",
		zap.String("region", result.Region),
		zap.Int("versions", len(page.Versions)),
		zap.Strings("metrics", page.Metrics))
	return buf.Bytes(), nil
}

// RenderToFile writes the map page to <dir>/map_<region>.html.
func (r *Renderer) RenderToFile(result *usecase.PipelineResult, dir string) (string, error) {
	page, err := r.Render(result)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("map_%s.html", result.Region))
	if err := os.WriteFile(path, page, 0o644); err != nil {
		return "", fmt.Errorf("write map: %w", err)
	}
	r.logger.Info("Wrote map page", zap.String("path", path))
	return path, nil
}

func hasPopulations(result *usecase.PipelineResult) bool {
	for _, version := range result.Versions {
		for _, area := range result.Areas[version] {
			if area.HasPopulation() {
				return true
			}
		}
	}
	return false
}
