// Package engine dispatches domain events to the workflow handler catalog
// and persists one run record per executed handler.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/handlers"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/persistence"
	"github.com/opensyte/automation/pkg/tracer"
)

var ErrMissingOrganization = errors.New("event has no organization id")

const disabledMessage = "Workflow disabled"

type Engine struct {
	store    persistence.Persistence
	registry *handlers.Registry
	logger   *slog.Logger
	tracer   trace.Tracer
}

func New(store persistence.Persistence, registry *handlers.Registry, logger *slog.Logger, tracer trace.Tracer) *Engine {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("automation-engine")
	}

	return &Engine{
		store:    store,
		registry: registry,
		logger:   logger,
		tracer:   tracer,
	}
}

// Execute dispatches one event through the handler catalog and returns one
// summary per matched handler, in registry order. Per-handler failures are
// isolated; the only whole-call error is failing the event-level
// preconditions shared by every handler, such as loading the tenant's
// configs.
func (e *Engine) Execute(ctx context.Context, event events.Event) ([]models.ExecutionSummary, error) {
	event = event.Normalized()

	if event.OrganizationID == "" {
		return nil, ErrMissingOrganization
	}

	if event.TriggeredAt.IsZero() {
		event.TriggeredAt = time.Now().UTC()
	}

	matched := make([]handlers.Handler, 0)

	for _, handler := range e.registry.Handlers() {
		if handler.Matches(event) {
			matched = append(matched, handler)
		}
	}

	if len(matched) == 0 {
		return []models.ExecutionSummary{}, nil
	}

	logger := e.logger.With(
		"organization_id", event.OrganizationID,
		"event_module", event.Module,
		"event_entity_type", event.EntityType,
		"event_type", event.EventType,
	)

	ctx, span := e.tracer.Start(ctx, "engine.execute", trace.WithAttributes(
		attribute.String(tracer.OrganizationIDKey, event.OrganizationID),
		attribute.String(tracer.ModuleKey, event.Module),
		attribute.String(tracer.EntityTypeKey, event.EntityType),
		attribute.String(tracer.EventTypeKey, event.EventType),
		attribute.Int("automation.matched_handlers", len(matched)),
	))
	defer span.End()

	configs, err := e.loadConfigs(ctx, event.OrganizationID)
	if err != nil {
		logger.Error("Failed to load workflow configs", "error", err)

		return nil, fmt.Errorf("failed to load workflow configs for organization %s: %w", event.OrganizationID, err)
	}

	orgName, err := e.organizationName(ctx, event.OrganizationID)
	if err != nil {
		logger.Error("Failed to load organization", "error", err)

		return nil, err
	}

	actorName, actorEmail := e.lookupActor(ctx, logger, event.UserID)

	summaries := make([]models.ExecutionSummary, 0, len(matched))

	for _, handler := range matched {
		ec := &models.ExecutionContext{
			Event:            event,
			OrganizationName: orgName,
			ActorName:        actorName,
			ActorEmail:       actorEmail,
			Config:           ResolveConfig(handler.Defaults(), configs[handler.Key()]),
			Logger:           logger.With("workflow_key", handler.Key()),
		}

		summaries = append(summaries, e.runHandler(ctx, handler, ec))
	}

	return summaries, nil
}

func (e *Engine) loadConfigs(ctx context.Context, organizationID string) (map[string]*models.WorkflowConfig, error) {
	stored, err := e.store.Configs().ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*models.WorkflowConfig, len(stored))
	for _, config := range stored {
		byKey[config.WorkflowKey] = config
	}

	return byKey, nil
}

func (e *Engine) organizationName(ctx context.Context, organizationID string) (string, error) {
	org, err := e.store.Organizations().GetByID(ctx, organizationID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return "", nil
		}

		return "", fmt.Errorf("failed to load organization %s: %w", organizationID, err)
	}

	return org.Name, nil
}

// lookupActor resolves the triggering user once for all matched handlers. A
// missing or unreadable user is not fatal; handlers fall back to payload
// emails.
func (e *Engine) lookupActor(ctx context.Context, logger *slog.Logger, userID string) (name, email string) {
	if userID == "" {
		return "", ""
	}

	user, err := e.store.Users().GetByID(ctx, userID)
	if err != nil {
		logger.Warn("Failed to load triggering user", "user_id", userID, "error", err)

		return "", ""
	}

	return user.Name, user.Email
}

func (e *Engine) runHandler(ctx context.Context, handler handlers.Handler, ec *models.ExecutionContext) models.ExecutionSummary {
	logger := ec.Logger

	if !ec.Config.Enabled {
		logger.Info("Workflow disabled, skipping")

		return models.ExecutionSummary{
			WorkflowKey: handler.Key(),
			Matched:     true,
			Executed:    false,
			Success:     false,
			Error:       disabledMessage,
		}
	}

	started := time.Now().UTC()

	run := &models.WorkflowRun{
		OrganizationID: ec.Event.OrganizationID,
		WorkflowKey:    handler.Key(),
		Status:         models.RunStatusRunning,
		TriggerModule:  ec.Event.Module,
		TriggerEntity:  ec.Event.EntityType,
		TriggerEvent:   ec.Event.EventType,
		TriggeredAt:    ec.Event.TriggeredAt,
		StartedAt:      started,
		Context: map[string]any{
			"payload":           ec.Event.Payload,
			"actor_name":        ec.ActorName,
			"actor_email":       ec.ActorEmail,
			"organization_name": ec.OrganizationName,
		},
	}

	if err := e.store.Runs().Create(ctx, run); err != nil {
		logger.Error("Failed to create run record", "error", err)

		return models.ExecutionSummary{
			WorkflowKey: handler.Key(),
			Matched:     true,
			Executed:    false,
			Success:     false,
			Error:       err.Error(),
		}
	}

	logger = logger.With("run_id", run.ID)
	logger.Info("Executing workflow handler")

	ctx, span := e.tracer.Start(ctx, "engine.handler."+handler.Key(), trace.WithAttributes(
		attribute.String(tracer.WorkflowKeyKey, handler.Key()),
		attribute.String(tracer.RunIDKey, run.ID),
	))
	defer span.End()

	result, err := e.safeExecute(ctx, handler, ec)

	completed := time.Now().UTC()
	duration := completed.Sub(started).Milliseconds()
	run.CompletedAt = &completed
	run.DurationMS = &duration

	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()

		if updateErr := e.store.Runs().Update(ctx, run); updateErr != nil {
			logger.Error("Failed to record run failure", "error", updateErr)
		}

		span.RecordError(err)
		logger.Error("Workflow handler failed", "error", err, "duration_ms", duration)

		return models.ExecutionSummary{
			WorkflowKey: handler.Key(),
			Matched:     true,
			Executed:    true,
			Success:     false,
			RunID:       run.ID,
			Error:       err.Error(),
		}
	}

	run.Status = models.RunStatusCompleted

	if result != nil {
		run.EmailRecipient = result.Recipient
		run.EmailSubject = result.Subject
		run.Result = result.Details
	}

	if updateErr := e.store.Runs().Update(ctx, run); updateErr != nil {
		logger.Error("Failed to record run completion", "error", updateErr)
	}

	logger.Info("Workflow handler completed", "duration_ms", duration)

	return models.ExecutionSummary{
		WorkflowKey: handler.Key(),
		Matched:     true,
		Executed:    true,
		Success:     true,
		RunID:       run.ID,
	}
}

// safeExecute invokes the handler and converts a panic into an ordinary
// error so one misbehaving handler cannot take down the dispatch loop.
func (e *Engine) safeExecute(ctx context.Context, handler handlers.Handler, ec *models.ExecutionContext) (result *models.HandlerResult, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			stack := make([]byte, 8096)
			n := runtime.Stack(stack, false)

			ec.Logger.Error("Recovered from handler panic",
				"panic", recovered,
				"stack", string(stack[:n]),
			)

			err = fmt.Errorf("handler %s panicked: %v", handler.Key(), recovered)
		}
	}()

	return handler.Execute(ctx, ec)
}
