package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/persistence"
)

// RunRepository handles workflow run database operations.
type RunRepository struct {
	db *sql.DB
}

const runColumns = `
			id
		  , organization_id
		  , workflow_key
		  , status
		  , trigger_module
		  , trigger_entity
		  , trigger_event
		  , triggered_at
		  , started_at
		  , completed_at
		  , duration_ms
		  , COALESCE(email_recipient, '')
		  , COALESCE(email_subject, '')
		  , context
		  , result
		  , COALESCE(error, '')
`

func (r *RunRepository) Create(ctx context.Context, run *models.WorkflowRun) error {
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate run ID: %w", err)
		}

		run.ID = id.String()
	}

	contextJSON, err := marshalNullable(run.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal run context: %w", err)
	}

	resultJSON, err := marshalNullable(run.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal run result: %w", err)
	}

	query := `
		INSERT INTO workflow_runs (
			id, organization_id, workflow_key, status, trigger_module,
			trigger_entity, trigger_event, triggered_at, started_at,
			completed_at, duration_ms, email_recipient, email_subject,
			context, result, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), NULLIF($13, ''), $14, $15, NULLIF($16, ''))
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.OrganizationID,
		run.WorkflowKey,
		run.Status,
		run.TriggerModule,
		run.TriggerEntity,
		run.TriggerEvent,
		run.TriggeredAt,
		run.StartedAt,
		run.CompletedAt,
		run.DurationMS,
		run.EmailRecipient,
		run.EmailSubject,
		contextJSON,
		resultJSON,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert workflow run: %w", err)
	}

	return nil
}

func (r *RunRepository) Update(ctx context.Context, run *models.WorkflowRun) error {
	resultJSON, err := marshalNullable(run.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal run result: %w", err)
	}

	query := `
		UPDATE workflow_runs
		SET status = $3
		  , completed_at = $4
		  , duration_ms = $5
		  , email_recipient = NULLIF($6, '')
		  , email_subject = NULLIF($7, '')
		  , result = $8
		  , error = NULLIF($9, '')
		WHERE id = $1 AND organization_id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.OrganizationID,
		run.Status,
		run.CompletedAt,
		run.DurationMS,
		run.EmailRecipient,
		run.EmailSubject,
		resultJSON,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to update workflow run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Update", run.OrganizationID, run.ID, persistence.ErrRunNotFound)
	}

	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, organizationID, id string) (*models.WorkflowRun, error) {
	query := `
		SELECT` + runColumns + `
		FROM workflow_runs
		WHERE id = $1 AND organization_id = $2
	`

	run, err := r.scanRun(r.db.QueryRowContext(ctx, query, id, organizationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", organizationID, id, persistence.ErrRunNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow run: %w", err)
	}

	return run, nil
}

func (r *RunRepository) ListByOrganization(ctx context.Context, organizationID string, limit int) ([]*models.WorkflowRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT` + runColumns + `
		FROM workflow_runs
		WHERE organization_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow runs: %w", err)
	}

	defer func() { _ = rows.Close() }()

	runs := make([]*models.WorkflowRun, 0)

	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) scanRun(row interface{ Scan(...any) error }) (*models.WorkflowRun, error) {
	run := &models.WorkflowRun{}

	var contextJSON, resultJSON []byte

	err := row.Scan(
		&run.ID,
		&run.OrganizationID,
		&run.WorkflowKey,
		&run.Status,
		&run.TriggerModule,
		&run.TriggerEntity,
		&run.TriggerEvent,
		&run.TriggeredAt,
		&run.StartedAt,
		&run.CompletedAt,
		&run.DurationMS,
		&run.EmailRecipient,
		&run.EmailSubject,
		&contextJSON,
		&resultJSON,
		&run.Error,
	)
	if err != nil {
		return nil, err
	}

	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &run.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run context: %w", err)
		}
	}

	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &run.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run result: %w", err)
		}
	}

	return run, nil
}

func marshalNullable(data map[string]any) (any, error) {
	if data == nil {
		return nil, nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return encoded, nil
}
