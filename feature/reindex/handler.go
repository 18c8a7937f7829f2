package reindex

import (
	"fmt"

	"resource-store/core/logger"
	"resource-store/core/server"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for reindexing.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the reindex routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Post("/$reindex", h.HandleReindex)
}

// HandleReindex reindexes every eligible resource and reports the counts.
// @Summary Reindex resources
// @Description Recompute search parameters of resources not reindexed since tstamp.
// @Tags reindex
// @Accept json
// @Produce json
// @Param request body Request false "Reindex selection"
// @Success 200 {object} Summary
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /$reindex [post]
func (h *Handler) HandleReindex(c *fiber.Ctx) error {
	var req Request
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return server.Error(c, fmt.Errorf("%w: %v", server.ErrBadRequest, err))
		}
	}

	sum, err := h.service.Run(c.UserContext(), req)
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Reindex failed", zap.Error(err), zap.Int64("processed", sum.Processed))
		return server.Error(c, err)
	}
	return c.JSON(sum)
}
