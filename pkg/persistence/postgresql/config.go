package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/opensyte/automation/pkg/models"
)

// ConfigRepository handles workflow config database operations.
type ConfigRepository struct {
	db *sql.DB
}

func (r *ConfigRepository) ListByOrganization(ctx context.Context, organizationID string) ([]*models.WorkflowConfig, error) {
	query := `
		SELECT
			organization_id
		  , workflow_key
		  , enabled
		  , COALESCE(email_subject, '')
		  , COALESCE(email_body, '')
		  , template_version
		  , COALESCE(updated_by, '')
		  , created_at
		  , updated_at
		FROM workflow_configs
		WHERE organization_id = $1
		ORDER BY workflow_key
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow configs: %w", err)
	}

	defer func() { _ = rows.Close() }()

	configs := make([]*models.WorkflowConfig, 0)

	for rows.Next() {
		config := &models.WorkflowConfig{}

		err := rows.Scan(
			&config.OrganizationID,
			&config.WorkflowKey,
			&config.Enabled,
			&config.EmailSubject,
			&config.EmailBody,
			&config.TemplateVersion,
			&config.UpdatedBy,
			&config.CreatedAt,
			&config.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow config: %w", err)
		}

		configs = append(configs, config)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow configs: %w", err)
	}

	return configs, nil
}

func (r *ConfigRepository) Upsert(ctx context.Context, config *models.WorkflowConfig) error {
	now := time.Now().UTC()

	if config.CreatedAt.IsZero() {
		config.CreatedAt = now
	}

	config.UpdatedAt = now

	// The template version starts at 1 and bumps whenever the stored
	// templates change, so notifications can be traced to the template
	// revision that produced them.
	query := `
		INSERT INTO workflow_configs (
			organization_id, workflow_key, enabled, email_subject, email_body,
			template_version, updated_by, created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), 1, NULLIF($6, ''), $7, $8)
		ON CONFLICT (organization_id, workflow_key) DO UPDATE
		SET enabled = EXCLUDED.enabled
		  , email_subject = EXCLUDED.email_subject
		  , email_body = EXCLUDED.email_body
		  , template_version = workflow_configs.template_version + CASE
				WHEN workflow_configs.email_subject IS DISTINCT FROM EXCLUDED.email_subject
				  OR workflow_configs.email_body IS DISTINCT FROM EXCLUDED.email_body
				THEN 1 ELSE 0 END
		  , updated_by = EXCLUDED.updated_by
		  , updated_at = EXCLUDED.updated_at
		RETURNING template_version
	`

	err := r.db.QueryRowContext(ctx, query,
		config.OrganizationID,
		config.WorkflowKey,
		config.Enabled,
		config.EmailSubject,
		config.EmailBody,
		config.UpdatedBy,
		config.CreatedAt,
		config.UpdatedAt,
	).Scan(&config.TemplateVersion)
	if err != nil {
		return fmt.Errorf("failed to upsert workflow config: %w", err)
	}

	return nil
}
