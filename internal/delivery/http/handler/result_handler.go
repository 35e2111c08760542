package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/place-density/internal/pkg/errors"
	"github.com/place-density/internal/pkg/utils"
	"github.com/place-density/internal/usecase"
)

// ResultHandler exposes the pipeline result as a GeoJSON API.
type ResultHandler struct {
	result *usecase.PipelineResult
	logger *zap.Logger
}

func NewResultHandler(result *usecase.PipelineResult, logger *zap.Logger) *ResultHandler {
	return &ResultHandler{
		result: result,
		logger: logger,
	}
}

func (h *ResultHandler) GetVersions(c *fiber.Ctx) error {
	return utils.SendSuccess(c, h.result.Versions, &utils.Meta{Total: len(h.result.Versions)})
}

func (h *ResultHandler) GetAreas(c *fiber.Ctx) error {
	version := c.Params("version")
	areas, ok := h.result.Areas[version]
	if !ok {
		return utils.SendError(c, unknownVersion(version))
	}

	return c.JSON(usecase.JoinedCollection(areas), "application/geo+json")
}

func (h *ResultHandler) GetPlaces(c *fiber.Ctx) error {
	version := c.Params("version")
	places, ok := h.result.Places[version]
	if !ok {
		return utils.SendError(c, unknownVersion(version))
	}

	return c.JSON(usecase.PlaceCollection(places), "application/geo+json")
}

func (h *ResultHandler) GetStats(c *fiber.Ctx) error {
	stats := fiber.Map{
		"run_id":   h.result.RunID,
		"region":   h.result.Region,
		"versions": fiber.Map{},
	}
	versions := make(fiber.Map, len(h.result.Versions))
	for _, version := range h.result.Versions {
		versions[version] = fiber.Map{
			"areas":  len(h.result.Areas[version]),
			"places": len(h.result.Places[version]),
		}
	}
	stats["versions"] = versions

	return utils.SendSuccess(c, stats, nil)
}

func unknownVersion(version string) error {
	return apperrors.ErrUnknownVersion.WithDetails(map[string]interface{}{
		"version": version,
	})
}
