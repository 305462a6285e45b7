package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/opensyte/automation/pkg/engine"
	"github.com/opensyte/automation/pkg/handlers"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/persistence"
)

const defaultRunListLimit = 50

type APIHandlers struct {
	store     persistence.Persistence
	engine    *engine.Engine
	registry  *handlers.Registry
	validator *validator.Validate
}

func NewAPIHandlers(
	store persistence.Persistence,
	eng *engine.Engine,
	registry *handlers.Registry,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		store:     store,
		engine:    eng,
		registry:  registry,
		validator: validate,
	}
}

// PostEvent accepts one domain event and dispatches it synchronously,
// returning the per-handler execution summaries. An event nothing matched is
// still accepted, with 202 and an empty summary list.
func (h *APIHandlers) PostEvent(c fiber.Ctx) error {
	if err := validateEventSchema(c.Body()); err != nil {
		return badRequest(c, err.Error())
	}

	var req EventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	summaries, err := h.engine.Execute(c.Context(), req.ToEvent())
	if err != nil {
		if errors.Is(err, engine.ErrMissingOrganization) {
			return badRequest(c, err.Error())
		}

		return internalError(c, err)
	}

	status := http.StatusOK
	if len(summaries) == 0 {
		status = http.StatusAccepted
	}

	return c.Status(status).JSON(fiber.Map{
		"summaries": summaries,
	})
}

func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	organizationID := c.Query("organization_id")
	if organizationID == "" {
		return badRequest(c, "organization_id query parameter is required")
	}

	limit := defaultRunListLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}

		limit = parsed
	}

	runs, err := h.store.Runs().ListByOrganization(c.Context(), organizationID, limit)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(fiber.Map{
		"runs":  runs,
		"count": len(runs),
	})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	organizationID := c.Query("organization_id")
	if organizationID == "" {
		return badRequest(c, "organization_id query parameter is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.store.Runs().GetByID(c.Context(), organizationID, id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(run)
}

// GetConfigs lists a tenant's stored workflow configs alongside the full
// catalog, so callers can see which workflows exist but are not configured.
func (h *APIHandlers) GetConfigs(c fiber.Ctx) error {
	organizationID := c.Query("organization_id")
	if organizationID == "" {
		return badRequest(c, "organization_id query parameter is required")
	}

	configs, err := h.store.Configs().ListByOrganization(c.Context(), organizationID)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(fiber.Map{
		"configs":       configs,
		"workflow_keys": h.registry.Keys(),
	})
}

func (h *APIHandlers) PutConfig(c fiber.Ctx) error {
	key := c.Params("key")

	if _, known := h.registry.Get(key); !known {
		return notFound(c, "Unknown workflow key")
	}

	var req UpsertConfigRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	config := &models.WorkflowConfig{
		OrganizationID: req.OrganizationID,
		WorkflowKey:    key,
		Enabled:        req.Enabled,
		EmailSubject:   req.EmailSubject,
		EmailBody:      req.EmailBody,
		UpdatedBy:      req.UpdatedBy,
	}

	if err := h.store.Configs().Upsert(c.Context(), config); err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(config)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Automation engine is healthy"
	httpStatus := http.StatusOK

	storeErr := h.store.HealthCheck(c.Context())
	if storeErr != nil {
		status = "unhealthy"
		message = "Automation engine is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	checkers := fiber.Map{
		"persistence": storeErr == nil,
		"handlers":    len(h.registry.Handlers()),
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"checkers":  checkers,
		"timestamp": time.Now().UTC(),
	})
}
