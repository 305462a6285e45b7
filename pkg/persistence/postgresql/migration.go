package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
)

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Domain entities touched by workflow side effects
			CREATE TABLE IF NOT EXISTS organizations (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				owner_email VARCHAR(320),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(320)
			);

			CREATE TABLE IF NOT EXISTS customers (
				id UUID PRIMARY KEY,
				organization_id UUID NOT NULL REFERENCES organizations(id),
				name VARCHAR(255) NOT NULL,
				email VARCHAR(320),
				type VARCHAR(50) NOT NULL,
				status VARCHAR(50) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_customers_org ON customers(organization_id);
			CREATE INDEX IF NOT EXISTS idx_customers_org_type_status ON customers(organization_id, type, status);

			CREATE TABLE IF NOT EXISTS projects (
				id UUID PRIMARY KEY,
				organization_id UUID NOT NULL REFERENCES organizations(id),
				customer_id UUID,
				name VARCHAR(255) NOT NULL,
				description TEXT,
				status VARCHAR(50) NOT NULL,
				budget NUMERIC(18,2),
				currency VARCHAR(3),
				owner_id UUID,
				start_at TIMESTAMP WITH TIME ZONE,
				end_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_projects_org ON projects(organization_id);
			CREATE INDEX IF NOT EXISTS idx_projects_org_customer ON projects(organization_id, customer_id, created_at);

			CREATE TABLE IF NOT EXISTS tasks (
				id UUID PRIMARY KEY,
				organization_id UUID NOT NULL REFERENCES organizations(id),
				project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
				title VARCHAR(255) NOT NULL,
				description TEXT,
				status VARCHAR(50) NOT NULL,
				assignee_id UUID,
				due_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
			CREATE INDEX IF NOT EXISTS idx_tasks_org_due ON tasks(organization_id, due_at);

			CREATE TABLE IF NOT EXISTS invoices (
				id UUID PRIMARY KEY,
				organization_id UUID NOT NULL REFERENCES organizations(id),
				customer_id UUID,
				project_id UUID,
				invoice_number VARCHAR(64) NOT NULL,
				status VARCHAR(50) NOT NULL,
				amount NUMERIC(18,2) NOT NULL,
				currency VARCHAR(3) NOT NULL,
				notes TEXT,
				issued_at TIMESTAMP WITH TIME ZONE NOT NULL,
				due_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_invoices_org ON invoices(organization_id);
			CREATE INDEX IF NOT EXISTS idx_invoices_org_project ON invoices(organization_id, project_id);
			CREATE INDEX IF NOT EXISTS idx_invoices_org_issued ON invoices(organization_id, issued_at);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_org_number ON invoices(organization_id, invoice_number);

			CREATE TABLE IF NOT EXISTS project_resources (
				id UUID PRIMARY KEY,
				organization_id UUID NOT NULL REFERENCES organizations(id),
				project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
				user_id UUID NOT NULL,
				role VARCHAR(100),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (project_id, user_id)
			);
		`,
		2: `
			-- Workflow engine tables: per-tenant configs and run history
			CREATE TABLE IF NOT EXISTS workflow_configs (
				organization_id UUID NOT NULL REFERENCES organizations(id),
				workflow_key VARCHAR(100) NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT FALSE,
				email_subject TEXT,
				email_body TEXT,
				template_version INT NOT NULL DEFAULT 1,
				updated_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (organization_id, workflow_key)
			);

			CREATE TABLE IF NOT EXISTS workflow_runs (
				id UUID PRIMARY KEY,
				organization_id UUID NOT NULL REFERENCES organizations(id),
				workflow_key VARCHAR(100) NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('RUNNING', 'COMPLETED', 'FAILED')),
				trigger_module VARCHAR(100) NOT NULL,
				trigger_entity VARCHAR(100) NOT NULL,
				trigger_event VARCHAR(100) NOT NULL,
				triggered_at TIMESTAMP WITH TIME ZONE NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				duration_ms BIGINT,
				email_recipient VARCHAR(320),
				email_subject TEXT,
				context JSONB,
				result JSONB,
				error TEXT
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_runs_org ON workflow_runs(organization_id, started_at);
			CREATE INDEX IF NOT EXISTS idx_workflow_runs_org_key ON workflow_runs(organization_id, workflow_key);
			CREATE INDEX IF NOT EXISTS idx_workflow_runs_status ON workflow_runs(status);
		`,
	}
}

func runMigrations(ctx context.Context, logger *slog.Logger, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	all := migrations()

	versions := make([]int, 0, len(all))
	for version := range all {
		versions = append(versions, version)
	}

	sort.Ints(versions)

	for _, version := range versions {
		var applied bool

		err = db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", version, err)
		}

		if applied {
			continue
		}

		logger.Info("Applying migration", "version", version)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", version, err)
		}

		if _, err = tx.ExecContext(ctx, all[version]); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to apply migration %d: %w", version, err)
		}

		if _, err = tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, version,
		); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}

		if err = tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}
	}

	return nil
}
