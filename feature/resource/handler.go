package resource

import (
	"fmt"
	"strconv"
	"strings"

	"resource-store/core/logger"
	"resource-store/core/server"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const fhirJSON = "application/fhir+json"

// Handler handles HTTP requests for resources.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the resource routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/resources")
	group.Get("/:type/_search", h.HandleSearch)
	group.Put("/:type/:id", h.HandlePut)
	group.Get("/:type/:id", h.HandleRead)
	group.Delete("/:type/:id", h.HandleDelete)
	group.Get("/:type/:id/_history", h.HandleHistory)
	group.Get("/:type/:id/_history/:version", h.HandleVRead)
}

func etag(version int) string {
	return fmt.Sprintf(`W/"%d"`, version)
}

// parseETag reads a weak or strong ETag holding a version number.
func parseETag(v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid version tag %q", server.ErrBadRequest, v)
	}
	return &n, nil
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	l := logger.WithRayID(h.logger, c)
	if server.StatusFor(err) >= fiber.StatusInternalServerError {
		l.Error(msg, zap.Error(err))
	} else {
		l.Debug(msg, zap.Error(err))
	}
	return server.Error(c, err)
}

// HandlePut creates or updates a resource.
// @Summary Create or update a resource
// @Tags resources
// @Accept json
// @Produce json
// @Param type path string true "Resource type"
// @Param id path string true "Logical id"
// @Success 200 {object} InsertResult
// @Success 201 {object} InsertResult
// @Failure 409 {object} map[string]string "Version conflict"
// @Failure 412 {object} map[string]string "Resource exists"
// @Router /resources/{type}/{id} [put]
func (h *Handler) HandlePut(c *fiber.Ctx) error {
	ifMatch, err := parseETag(c.Get(fiber.HeaderIfMatch))
	if err != nil {
		return server.Error(c, err)
	}
	var ifNoneMatch *int
	if c.Get(fiber.HeaderIfNoneMatch) == "*" {
		zero := 0
		ifNoneMatch = &zero
	}

	res, err := h.service.Put(c.UserContext(), c.Params("type"), c.Params("id"), c.Body(), ifMatch, ifNoneMatch)
	if err != nil {
		return h.fail(c, "Resource write failed", err)
	}

	c.Set(fiber.HeaderETag, etag(res.VersionID))
	switch res.Status {
	case StatusCreated:
		c.Status(fiber.StatusCreated)
	case StatusIfNoneMatchExisted:
		c.Status(fiber.StatusPreconditionFailed)
	}
	return c.JSON(res)
}

// HandleRead returns the current version of a resource.
// @Summary Read a resource
// @Tags resources
// @Produce json
// @Router /resources/{type}/{id} [get]
func (h *Handler) HandleRead(c *fiber.Ctx) error {
	res, err := h.service.Read(c.UserContext(), c.Params("type"), c.Params("id"))
	if err != nil {
		return h.fail(c, "Resource read failed", err)
	}
	c.Set(fiber.HeaderETag, etag(res.VersionID))
	if res.Deleted {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "resource deleted", "version": res.VersionID})
	}
	c.Set(fiber.HeaderContentType, fhirJSON)
	return c.Send(res.Data)
}

// HandleVRead returns one version of a resource.
// @Summary Read a resource version
// @Tags resources
// @Produce json
// @Router /resources/{type}/{id}/_history/{version} [get]
func (h *Handler) HandleVRead(c *fiber.Ctx) error {
	version, err := strconv.Atoi(c.Params("version"))
	if err != nil {
		return server.Error(c, fmt.Errorf("%w: invalid version %q", server.ErrBadRequest, c.Params("version")))
	}
	res, err := h.service.VRead(c.UserContext(), c.Params("type"), c.Params("id"), version)
	if err != nil {
		return h.fail(c, "Resource version read failed", err)
	}
	c.Set(fiber.HeaderETag, etag(res.VersionID))
	if res.Deleted {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "resource deleted", "version": res.VersionID})
	}
	c.Set(fiber.HeaderContentType, fhirJSON)
	return c.Send(res.Data)
}

// HandleDelete marks a resource deleted.
// @Summary Delete a resource
// @Tags resources
// @Produce json
// @Router /resources/{type}/{id} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	res, err := h.service.Delete(c.UserContext(), c.Params("type"), c.Params("id"))
	if err != nil {
		return h.fail(c, "Resource delete failed", err)
	}
	c.Set(fiber.HeaderETag, etag(res.VersionID))
	return c.JSON(res)
}

type historyEntry struct {
	VersionID   int    `json:"versionId"`
	LastUpdated string `json:"lastUpdated"`
	Deleted     bool   `json:"deleted"`
	Erased      bool   `json:"erased"`
}

// HandleHistory lists the versions of a resource.
// @Summary Resource history
// @Tags resources
// @Produce json
// @Router /resources/{type}/{id}/_history [get]
func (h *Handler) HandleHistory(c *fiber.Ctx) error {
	records, err := h.service.History(c.UserContext(), c.Params("type"), c.Params("id"))
	if err != nil {
		return h.fail(c, "Resource history failed", err)
	}
	out := make([]historyEntry, len(records))
	for i, r := range records {
		out[i] = historyEntry{
			VersionID:   r.VersionID,
			LastUpdated: r.LastUpdated.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			Deleted:     r.Deleted,
			Erased:      r.Erased(),
		}
	}
	return c.JSON(out)
}

// HandleSearch finds resources by token (param, system, code) or by profile.
// @Summary Search resources
// @Tags resources
// @Produce json
// @Router /resources/{type}/_search [get]
func (h *Handler) HandleSearch(c *fiber.Ctx) error {
	var (
		ids []string
		err error
	)
	if profile := c.Query("profile"); profile != "" {
		ids, err = h.service.SearchProfile(c.UserContext(), c.Params("type"), profile)
	} else {
		name, code := c.Query("param"), c.Query("code")
		if name == "" || code == "" {
			return server.Error(c, fmt.Errorf("%w: param and code or profile are required", server.ErrBadRequest))
		}
		ids, err = h.service.SearchToken(c.UserContext(), c.Params("type"), name, c.Query("system"), code)
	}
	if err != nil {
		return h.fail(c, "Resource search failed", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(fiber.Map{"ids": ids})
}
