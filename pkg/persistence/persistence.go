// Package persistence provides the data storage abstraction layer for the
// automation engine. Every operation is scoped to one organization; no
// implementation may ever return rows across tenants.
package persistence

import (
	"context"
	"time"

	"github.com/opensyte/automation/pkg/models"
)

type Persistence interface {
	Customers() CustomerRepository
	Projects() ProjectRepository
	Tasks() TaskRepository
	Invoices() InvoiceRepository
	ProjectResources() ProjectResourceRepository
	Organizations() OrganizationRepository
	Users() UserRepository
	Runs() RunRepository
	Configs() ConfigRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type CustomerRepository interface {
	GetByID(ctx context.Context, organizationID, id string) (*models.Customer, error)
	Update(ctx context.Context, customer *models.Customer) error
	CountActiveClients(ctx context.Context, organizationID string) (int, error)
}

type ProjectRepository interface {
	GetByID(ctx context.Context, organizationID, id string) (*models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error

	// LatestByCustomer returns the most recently created project for the
	// customer, or (nil, nil) when the customer has none.
	LatestByCustomer(ctx context.Context, organizationID, customerID string) (*models.Project, error)

	CountActive(ctx context.Context, organizationID string) (int, error)
	CountAtRisk(ctx context.Context, organizationID string, now time.Time) (int, error)
}

type TaskRepository interface {
	CreateBatch(ctx context.Context, tasks []*models.Task) error
	CountByProject(ctx context.Context, organizationID, projectID string) (int, error)
	CountOverdue(ctx context.Context, organizationID string, now time.Time) (int, error)
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error

	// FindByProjectRef returns an invoice correlated to the project, either
	// through its project id column or a project marker embedded in the
	// notes, or (nil, nil) when none exists.
	FindByProjectRef(ctx context.Context, organizationID, projectID string) (*models.Invoice, error)

	// FindByMarker returns an invoice whose notes contain the given stable
	// business marker, or (nil, nil) when none exists.
	FindByMarker(ctx context.Context, organizationID, marker string) (*models.Invoice, error)

	CountForMonth(ctx context.Context, organizationID string, year int, month time.Month) (int, error)
	CountOverdue(ctx context.Context, organizationID string, now time.Time) (int, error)
}

type ProjectResourceRepository interface {
	// Upsert assigns the user to the project, keyed by (project, user);
	// safe to call repeatedly.
	Upsert(ctx context.Context, resource *models.ProjectResource) error
}

type OrganizationRepository interface {
	GetByID(ctx context.Context, id string) (*models.Organization, error)
	ListIDs(ctx context.Context) ([]string, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type RunRepository interface {
	Create(ctx context.Context, run *models.WorkflowRun) error
	Update(ctx context.Context, run *models.WorkflowRun) error
	GetByID(ctx context.Context, organizationID, id string) (*models.WorkflowRun, error)
	ListByOrganization(ctx context.Context, organizationID string, limit int) ([]*models.WorkflowRun, error)
}

type ConfigRepository interface {
	ListByOrganization(ctx context.Context, organizationID string) ([]*models.WorkflowConfig, error)
	Upsert(ctx context.Context, config *models.WorkflowConfig) error
}
