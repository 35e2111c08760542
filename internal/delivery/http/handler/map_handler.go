package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/place-density/internal/pkg/utils"
	"github.com/place-density/internal/usecase"
	"github.com/place-density/internal/visualize"
)

// MapHandler serves the interactive map page.
type MapHandler struct {
	renderer *visualize.Renderer
	result   *usecase.PipelineResult
	logger   *zap.Logger
}

func NewMapHandler(renderer *visualize.Renderer, result *usecase.PipelineResult, logger *zap.Logger) *MapHandler {
	return &MapHandler{
		renderer: renderer,
		result:   result,
		logger:   logger,
	}
}

func (h *MapHandler) GetMap(c *fiber.Ctx) error {
	page, err := h.renderer.Render(h.result)
	if err != nil {
		h.logger.Error("Failed to render map", zap.Error(err))
		return utils.SendError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(page)
}
