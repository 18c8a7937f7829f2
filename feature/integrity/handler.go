package integrity

import (
	"resource-store/core/logger"
	"resource-store/core/server"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/$integrity")
	group.Get("/", h.HandleCheck)
	group.Post("/purge", h.HandlePurge)
}

// HandleCheck reports payload keys missing on either side.
func (h *Handler) HandleCheck(c *fiber.Ctx) error {
	plan, err := h.service.Check(c.UserContext(), Options{DoPurge: c.QueryBool("purge")})
	if err != nil {
		return server.Error(c, err)
	}
	return c.JSON(plan)
}

// HandlePurge removes orphaned payload objects. Without confirm=true it only plans.
func (h *Handler) HandlePurge(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	opts := Options{Confirmed: c.QueryBool("confirm"), DryRun: c.QueryBool("dry_run")}

	plan, executed, err := h.service.Purge(c.UserContext(), opts)
	if err != nil {
		l.Error("Payload purge failed", zap.Error(err))
		return server.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"plan":     plan,
		"executed": executed,
	})
}
