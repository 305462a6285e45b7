package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/persistence"
)

// ProjectRepository handles project database operations.
type ProjectRepository struct {
	db *sql.DB
}

const projectColumns = `
			id
		  , organization_id
		  , COALESCE(customer_id::text, '')
		  , name
		  , COALESCE(description, '')
		  , status
		  , budget
		  , COALESCE(currency, '')
		  , COALESCE(owner_id::text, '')
		  , start_at
		  , end_at
		  , created_at
		  , updated_at
`

func (r *ProjectRepository) scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	project := &models.Project{}

	var budget sql.NullString

	err := row.Scan(
		&project.ID,
		&project.OrganizationID,
		&project.CustomerID,
		&project.Name,
		&project.Description,
		&project.Status,
		&budget,
		&project.Currency,
		&project.OwnerID,
		&project.StartAt,
		&project.EndAt,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if budget.Valid {
		amount, err := decimal.NewFromString(budget.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse project budget: %w", err)
		}

		project.Budget = &amount
	}

	return project, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, organizationID, id string) (*models.Project, error) {
	query := `
		SELECT` + projectColumns + `
		FROM projects
		WHERE id = $1 AND organization_id = $2
	`

	project, err := r.scanProject(r.db.QueryRowContext(ctx, query, id, organizationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", organizationID, id, persistence.ErrProjectNotFound)
		}

		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	return project, nil
}

func (r *ProjectRepository) LatestByCustomer(ctx context.Context, organizationID, customerID string) (*models.Project, error) {
	query := `
		SELECT` + projectColumns + `
		FROM projects
		WHERE organization_id = $1 AND customer_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	project, err := r.scanProject(r.db.QueryRowContext(ctx, query, organizationID, customerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	return project, nil
}

func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	now := time.Now().UTC()

	if project.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate project ID: %w", err)
		}

		project.ID = id.String()
	}

	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}

	project.UpdatedAt = now

	var budget any
	if project.Budget != nil {
		budget = project.Budget.String()
	}

	query := `
		INSERT INTO projects (
			id, organization_id, customer_id, name, description, status,
			budget, currency, owner_id, start_at, end_at, created_at, updated_at
		) VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, '')::uuid, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		project.ID,
		project.OrganizationID,
		project.CustomerID,
		project.Name,
		project.Description,
		project.Status,
		budget,
		project.Currency,
		project.OwnerID,
		project.StartAt,
		project.EndAt,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	return nil
}

func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()

	var budget any
	if project.Budget != nil {
		budget = project.Budget.String()
	}

	query := `
		UPDATE projects
		SET name = $3
		  , description = $4
		  , status = $5
		  , budget = $6
		  , currency = NULLIF($7, '')
		  , owner_id = NULLIF($8, '')::uuid
		  , start_at = $9
		  , end_at = $10
		  , updated_at = $11
		WHERE id = $1 AND organization_id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		project.ID,
		project.OrganizationID,
		project.Name,
		project.Description,
		project.Status,
		budget,
		project.Currency,
		project.OwnerID,
		project.StartAt,
		project.EndAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Update", project.OrganizationID, project.ID, persistence.ErrProjectNotFound)
	}

	return nil
}

func (r *ProjectRepository) CountActive(ctx context.Context, organizationID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM projects
		WHERE organization_id = $1 AND status IN ($2, $3)
	`

	var count int

	err := r.db.QueryRowContext(ctx, query,
		organizationID, models.ProjectStatusPlanned, models.ProjectStatusInProgress,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active projects: %w", err)
	}

	return count, nil
}

func (r *ProjectRepository) CountAtRisk(ctx context.Context, organizationID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM projects
		WHERE organization_id = $1 AND status = $2 AND end_at IS NOT NULL AND end_at < $3
	`

	var count int

	err := r.db.QueryRowContext(ctx, query,
		organizationID, models.ProjectStatusInProgress, now,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count at-risk projects: %w", err)
	}

	return count, nil
}

// TaskRepository handles task database operations.
type TaskRepository struct {
	db *sql.DB
}

func (r *TaskRepository) CreateBatch(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `
		INSERT INTO tasks (
			id, organization_id, project_id, title, description, status, assignee_id, due_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid, $8, $9)
	`

	now := time.Now().UTC()

	for _, task := range tasks {
		if task.ID == "" {
			id, idErr := uuid.NewV7()
			if idErr != nil {
				err = fmt.Errorf("failed to generate task ID: %w", idErr)

				return err
			}

			task.ID = id.String()
		}

		if task.CreatedAt.IsZero() {
			task.CreatedAt = now
		}

		_, err = tx.ExecContext(ctx, query,
			task.ID,
			task.OrganizationID,
			task.ProjectID,
			task.Title,
			task.Description,
			task.Status,
			task.AssigneeID,
			task.DueAt,
			task.CreatedAt,
		)
		if err != nil {
			err = fmt.Errorf("failed to insert task: %w", err)

			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit tasks: %w", err)
	}

	return nil
}

func (r *TaskRepository) CountByProject(ctx context.Context, organizationID, projectID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tasks
		WHERE organization_id = $1 AND project_id = $2
	`

	var count int

	err := r.db.QueryRowContext(ctx, query, organizationID, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count project tasks: %w", err)
	}

	return count, nil
}

func (r *TaskRepository) CountOverdue(ctx context.Context, organizationID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tasks
		WHERE organization_id = $1 AND status != $2 AND due_at IS NOT NULL AND due_at < $3
	`

	var count int

	err := r.db.QueryRowContext(ctx, query, organizationID, models.TaskStatusDone, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	return count, nil
}

// ProjectResourceRepository handles project resource assignments.
type ProjectResourceRepository struct {
	db *sql.DB
}

func (r *ProjectResourceRepository) Upsert(ctx context.Context, resource *models.ProjectResource) error {
	if resource.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate resource ID: %w", err)
		}

		resource.ID = id.String()
	}

	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO project_resources (id, organization_id, project_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`

	_, err := r.db.ExecContext(ctx, query,
		resource.ID,
		resource.OrganizationID,
		resource.ProjectID,
		resource.UserID,
		resource.Role,
		resource.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert project resource: %w", err)
	}

	return nil
}
