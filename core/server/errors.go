package server

import (
	"errors"

	"resource-store/core/dberr"

	"github.com/gofiber/fiber/v2"
)

// ErrBadRequest marks errors caused by invalid client input.
var ErrBadRequest = errors.New("bad request")

// StatusFor maps an error to the HTTP status reported by the admin surface.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, ErrBadRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, dberr.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, dberr.ErrVersionConflict):
		return fiber.StatusConflict
	case errors.Is(err, dberr.ErrUnsupported):
		return fiber.StatusNotImplemented
	case errors.Is(err, dberr.ErrConnect), errors.Is(err, dberr.ErrLock):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// Error writes err as a JSON error body with the status from StatusFor.
func Error(c *fiber.Ctx, err error) error {
	return c.Status(StatusFor(err)).JSON(fiber.Map{"error": err.Error()})
}
