package erase

import (
	"fmt"
	"strconv"

	"resource-store/core/logger"
	"resource-store/core/server"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for erasing resources.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the erase routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/$erase")
	group.Post("/", h.HandleErase)
	group.Get("/:group", h.HandleRecords)
	group.Delete("/:group", h.HandleClear)
}

func statusCode(s Status) int {
	switch s {
	case StatusNotFound:
		return fiber.StatusNotFound
	case StatusNotSupportedGreater, StatusNotSupportedLatest:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusOK
	}
}

// HandleErase erases a resource or one of its versions.
// @Summary Erase a resource
// @Description Hard-delete a whole resource or the payload of one historical version.
// @Tags erase
// @Accept json
// @Produce json
// @Param request body Request true "What to erase"
// @Success 200 {object} ResourceEraseRecord
// @Failure 400 {object} ResourceEraseRecord "Version cannot be erased"
// @Failure 404 {object} ResourceEraseRecord "Resource not found"
// @Router /$erase [post]
func (h *Handler) HandleErase(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return server.Error(c, fmt.Errorf("%w: %v", server.ErrBadRequest, err))
	}
	if req.ResourceType == "" || req.LogicalID == "" {
		return server.Error(c, fmt.Errorf("%w: resourceType and logicalId are required", server.ErrBadRequest))
	}

	rec, err := h.service.Erase(c.UserContext(), req)
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Erase failed", zap.Error(err))
		return server.Error(c, err)
	}
	return c.Status(statusCode(rec.Status)).JSON(rec)
}

func groupParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("group"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid erase group %q", server.ErrBadRequest, c.Params("group"))
	}
	return id, nil
}

// HandleRecords lists the audit rows of an erase group.
// @Summary Erased resources of a group
// @Tags erase
// @Produce json
// @Param group path int true "Erase group id"
// @Success 200 {array} ErasedResourceRec
// @Router /$erase/{group} [get]
func (h *Handler) HandleRecords(c *fiber.Ctx) error {
	id, err := groupParam(c)
	if err != nil {
		return server.Error(c, err)
	}
	recs, err := h.service.Records(c.UserContext(), id)
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Reading erased resources failed", zap.Error(err))
		return server.Error(c, err)
	}
	if recs == nil {
		recs = []ErasedResourceRec{}
	}
	return c.JSON(recs)
}

// HandleClear removes the audit rows of an erase group.
// @Summary Clear an erase group
// @Tags erase
// @Produce json
// @Param group path int true "Erase group id"
// @Router /$erase/{group} [delete]
func (h *Handler) HandleClear(c *fiber.Ctx) error {
	id, err := groupParam(c)
	if err != nil {
		return server.Error(c, err)
	}
	n, err := h.service.Clear(c.UserContext(), id)
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Clearing erase group failed", zap.Error(err))
		return server.Error(c, err)
	}
	return c.JSON(fiber.Map{"cleared": n})
}
