// Package postgresql provides the PostgreSQL persistence implementation for
// the automation engine's domain entities, workflow runs and configs.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver
	"github.com/opensyte/automation/pkg/persistence"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	customers *CustomerRepository
	projects  *ProjectRepository
	tasks     *TaskRepository
	invoices  *InvoiceRepository
	resources *ProjectResourceRepository
	orgs      *OrganizationRepository
	users     *UserRepository
	runs      *RunRepository
	configs   *ConfigRepository
}

// NewPersistence connects to PostgreSQL, runs migrations and returns the
// persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Persistence{
		db:        database,
		logger:    logger,
		customers: &CustomerRepository{db: database},
		projects:  &ProjectRepository{db: database},
		tasks:     &TaskRepository{db: database},
		invoices:  &InvoiceRepository{db: database},
		resources: &ProjectResourceRepository{db: database},
		orgs:      &OrganizationRepository{db: database},
		users:     &UserRepository{db: database},
		runs:      &RunRepository{db: database},
		configs:   &ConfigRepository{db: database},
	}

	err = runMigrations(ctx, logger, database)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return p, nil
}

func (p *Persistence) Customers() persistence.CustomerRepository { return p.customers }
func (p *Persistence) Projects() persistence.ProjectRepository   { return p.projects }
func (p *Persistence) Tasks() persistence.TaskRepository         { return p.tasks }
func (p *Persistence) Invoices() persistence.InvoiceRepository   { return p.invoices }
func (p *Persistence) ProjectResources() persistence.ProjectResourceRepository {
	return p.resources
}
func (p *Persistence) Organizations() persistence.OrganizationRepository { return p.orgs }
func (p *Persistence) Users() persistence.UserRepository                 { return p.users }
func (p *Persistence) Runs() persistence.RunRepository                   { return p.runs }
func (p *Persistence) Configs() persistence.ConfigRepository             { return p.configs }

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
