// Package scheduler emits periodic internal-health events so the
// internal-health workflow produces its operations digest per organization.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/persistence"
)

const DefaultCronExpr = "0 * * * *"

type HealthScheduler struct {
	store    persistence.Persistence
	dispatch DispatchFunc
	logger   *slog.Logger
	cronExpr string
	cron     *cron.Cron
}

// DispatchFunc hands one synthetic event to the engine.
type DispatchFunc func(ctx context.Context, event events.Event) error

func NewHealthScheduler(store persistence.Persistence, dispatch DispatchFunc, logger *slog.Logger, cronExpr string) (*HealthScheduler, error) {
	if cronExpr == "" {
		cronExpr = DefaultCronExpr
	}

	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return nil, fmt.Errorf("invalid health cron expression %q: %w", cronExpr, err)
	}

	return &HealthScheduler{
		store:    store,
		dispatch: dispatch,
		logger:   logger.With("module", "health_scheduler"),
		cronExpr: cronExpr,
	}, nil
}

func (s *HealthScheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := s.cron.AddFunc(s.cronExpr, func() {
		s.emitAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule health snapshots: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Health scheduler started", "cron", s.cronExpr)

	return nil
}

func (s *HealthScheduler) Stop() {
	if s.cron != nil {
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	}

	s.logger.Info("Health scheduler stopped")
}

// emitAll pushes one internal-health flagged event per organization through
// the dispatcher. Organizations with the workflow disabled simply produce no
// run.
func (s *HealthScheduler) emitAll(ctx context.Context) {
	organizationIDs, err := s.store.Organizations().ListIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list organizations for health snapshot", "error", err)

		return
	}

	for _, organizationID := range organizationIDs {
		payload := map[string]any{
			"internal_health": true,
			"source":          "scheduler",
		}

		// The digest needs a recipient; scheduled events have no actor,
		// so the organization owner receives it.
		org, err := s.store.Organizations().GetByID(ctx, organizationID)
		if err != nil {
			s.logger.Error("Failed to load organization for health snapshot", "organization_id", organizationID, "error", err)

			continue
		}

		if org.OwnerEmail != "" {
			payload["recipient_email"] = org.OwnerEmail
		}

		event := events.Event{
			OrganizationID: organizationID,
			Module:         events.ModuleOperations,
			EntityType:     "health_snapshot",
			EventType:      events.TypeCreated,
			Payload:        payload,
			TriggeredAt:    time.Now().UTC(),
		}

		if err := s.dispatch(ctx, event); err != nil {
			s.logger.Error("Health snapshot dispatch failed", "organization_id", organizationID, "error", err)
		}
	}
}
