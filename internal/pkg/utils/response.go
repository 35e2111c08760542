package utils

import (
	"github.com/gofiber/fiber/v2"

	"github.com/place-density/internal/pkg/errors"
)

type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Error *errors.AppError `json:"error"`
}

type Meta struct {
	Total    int     `json:"total,omitempty"`
	TimeMSec float64 `json:"time_ms,omitempty"`
}

func SendSuccess(c *fiber.Ctx, data interface{}, meta *Meta) error {
	return c.JSON(SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

func SendError(c *fiber.Ctx, err error) error {
	if appErr, ok := err.(*errors.AppError); ok {
		return c.Status(statusFor(appErr)).JSON(ErrorResponse{
			Error: appErr,
		})
	}

	// Unknown error - return 500
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: errors.New("INTERNAL_SERVER_ERROR", err.Error()),
	})
}

func statusFor(err *errors.AppError) int {
	switch err.Code {
	case errors.ErrUnknownRegion.Code, errors.ErrUnknownVersion.Code, errors.ErrNoData.Code:
		return fiber.StatusNotFound
	case errors.ErrInvalidConfig.Code, errors.ErrInvalidBBox.Code:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
