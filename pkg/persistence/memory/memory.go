// Package memory provides an in-memory persistence implementation used by
// tests and local development. All data is lost on process exit.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/persistence"
)

// Persistence implements persistence.Persistence backed by maps guarded by
// one mutex. Reads return copies so callers cannot mutate stored state.
type Persistence struct {
	mu sync.RWMutex

	customers     map[string]models.Customer
	projects      map[string]models.Project
	tasks         map[string]models.Task
	invoices      map[string]models.Invoice
	resources     map[string]models.ProjectResource // keyed project/user
	organizations map[string]models.Organization
	users         map[string]models.User
	runs          map[string]models.WorkflowRun
	configs       map[string]models.WorkflowConfig // keyed org/workflow key
}

func NewPersistence() *Persistence {
	return &Persistence{
		customers:     make(map[string]models.Customer),
		projects:      make(map[string]models.Project),
		tasks:         make(map[string]models.Task),
		invoices:      make(map[string]models.Invoice),
		resources:     make(map[string]models.ProjectResource),
		organizations: make(map[string]models.Organization),
		users:         make(map[string]models.User),
		runs:          make(map[string]models.WorkflowRun),
		configs:       make(map[string]models.WorkflowConfig),
	}
}

func (p *Persistence) Customers() persistence.CustomerRepository { return &customerRepo{p} }
func (p *Persistence) Projects() persistence.ProjectRepository   { return &projectRepo{p} }
func (p *Persistence) Tasks() persistence.TaskRepository         { return &taskRepo{p} }
func (p *Persistence) Invoices() persistence.InvoiceRepository   { return &invoiceRepo{p} }
func (p *Persistence) ProjectResources() persistence.ProjectResourceRepository {
	return &resourceRepo{p}
}
func (p *Persistence) Organizations() persistence.OrganizationRepository { return &orgRepo{p} }
func (p *Persistence) Users() persistence.UserRepository                 { return &userRepo{p} }
func (p *Persistence) Runs() persistence.RunRepository                   { return &runRepo{p} }
func (p *Persistence) Configs() persistence.ConfigRepository             { return &configRepo{p} }

func (p *Persistence) HealthCheck(_ context.Context) error { return nil }
func (p *Persistence) Close(_ context.Context) error       { return nil }

func configKey(organizationID, workflowKey string) string {
	return organizationID + "/" + workflowKey
}

func resourceKey(projectID, userID string) string {
	return projectID + "/" + userID
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}

	return id.String()
}

// Seed helpers used by tests and local fixtures.

func (p *Persistence) SeedOrganization(org models.Organization) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.organizations[org.ID] = org
}

func (p *Persistence) SeedUser(user models.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[user.ID] = user
}

func (p *Persistence) SeedCustomer(customer models.Customer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customers[customer.ID] = customer
}

func (p *Persistence) SeedProject(project models.Project) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.projects[project.ID] = project
}

func (p *Persistence) SeedConfig(config models.WorkflowConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configs[configKey(config.OrganizationID, config.WorkflowKey)] = config
}

// AllRuns returns every stored run, newest first. Test helper.
func (p *Persistence) AllRuns() []models.WorkflowRun {
	p.mu.RLock()
	defer p.mu.RUnlock()

	runs := make([]models.WorkflowRun, 0, len(p.runs))
	for _, run := range p.runs {
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })

	return runs
}

// AllInvoices returns every stored invoice. Test helper.
func (p *Persistence) AllInvoices() []models.Invoice {
	p.mu.RLock()
	defer p.mu.RUnlock()

	invoices := make([]models.Invoice, 0, len(p.invoices))
	for _, invoice := range p.invoices {
		invoices = append(invoices, invoice)
	}

	sort.Slice(invoices, func(i, j int) bool { return invoices[i].CreatedAt.Before(invoices[j].CreatedAt) })

	return invoices
}

type customerRepo struct{ p *Persistence }

func (r *customerRepo) GetByID(_ context.Context, organizationID, id string) (*models.Customer, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	customer, exists := r.p.customers[id]
	if !exists || customer.OrganizationID != organizationID {
		return nil, persistence.NewStoreError("GetByID", organizationID, id, persistence.ErrCustomerNotFound)
	}

	copied := customer

	return &copied, nil
}

func (r *customerRepo) Update(_ context.Context, customer *models.Customer) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	existing, exists := r.p.customers[customer.ID]
	if !exists || existing.OrganizationID != customer.OrganizationID {
		return persistence.NewStoreError("Update", customer.OrganizationID, customer.ID, persistence.ErrCustomerNotFound)
	}

	customer.UpdatedAt = time.Now().UTC()
	r.p.customers[customer.ID] = *customer

	return nil
}

func (r *customerRepo) CountActiveClients(_ context.Context, organizationID string) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	count := 0

	for _, customer := range r.p.customers {
		if customer.OrganizationID == organizationID &&
			customer.Type == models.CustomerTypeClient &&
			customer.Status == models.CustomerStatusActive {
			count++
		}
	}

	return count, nil
}

type projectRepo struct{ p *Persistence }

func (r *projectRepo) GetByID(_ context.Context, organizationID, id string) (*models.Project, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	project, exists := r.p.projects[id]
	if !exists || project.OrganizationID != organizationID {
		return nil, persistence.NewStoreError("GetByID", organizationID, id, persistence.ErrProjectNotFound)
	}

	copied := project

	return &copied, nil
}

func (r *projectRepo) Create(_ context.Context, project *models.Project) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if project.ID == "" {
		project.ID = newID()
	}

	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}

	project.UpdatedAt = now
	r.p.projects[project.ID] = *project

	return nil
}

func (r *projectRepo) Update(_ context.Context, project *models.Project) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	existing, exists := r.p.projects[project.ID]
	if !exists || existing.OrganizationID != project.OrganizationID {
		return persistence.NewStoreError("Update", project.OrganizationID, project.ID, persistence.ErrProjectNotFound)
	}

	project.UpdatedAt = time.Now().UTC()
	r.p.projects[project.ID] = *project

	return nil
}

func (r *projectRepo) LatestByCustomer(_ context.Context, organizationID, customerID string) (*models.Project, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	var latest *models.Project

	for _, project := range r.p.projects {
		if project.OrganizationID != organizationID || project.CustomerID != customerID {
			continue
		}

		if latest == nil || project.CreatedAt.After(latest.CreatedAt) {
			copied := project
			latest = &copied
		}
	}

	return latest, nil
}

func (r *projectRepo) CountActive(_ context.Context, organizationID string) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	count := 0

	for _, project := range r.p.projects {
		if project.OrganizationID == organizationID &&
			(project.Status == models.ProjectStatusInProgress || project.Status == models.ProjectStatusPlanned) {
			count++
		}
	}

	return count, nil
}

func (r *projectRepo) CountAtRisk(_ context.Context, organizationID string, now time.Time) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	count := 0

	for _, project := range r.p.projects {
		if project.OrganizationID == organizationID &&
			project.Status == models.ProjectStatusInProgress &&
			project.EndAt != nil && project.EndAt.Before(now) {
			count++
		}
	}

	return count, nil
}

type taskRepo struct{ p *Persistence }

func (r *taskRepo) CreateBatch(_ context.Context, tasks []*models.Task) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := time.Now().UTC()

	for _, task := range tasks {
		if task.ID == "" {
			task.ID = newID()
		}

		if task.CreatedAt.IsZero() {
			task.CreatedAt = now
		}

		r.p.tasks[task.ID] = *task
	}

	return nil
}

func (r *taskRepo) CountByProject(_ context.Context, organizationID, projectID string) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	count := 0

	for _, task := range r.p.tasks {
		if task.OrganizationID == organizationID && task.ProjectID == projectID {
			count++
		}
	}

	return count, nil
}

func (r *taskRepo) CountOverdue(_ context.Context, organizationID string, now time.Time) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	count := 0

	for _, task := range r.p.tasks {
		if task.OrganizationID == organizationID &&
			task.Status != models.TaskStatusDone &&
			task.DueAt != nil && task.DueAt.Before(now) {
			count++
		}
	}

	return count, nil
}

type invoiceRepo struct{ p *Persistence }

func (r *invoiceRepo) Create(_ context.Context, invoice *models.Invoice) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if invoice.ID == "" {
		invoice.ID = newID()
	}

	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}

	r.p.invoices[invoice.ID] = *invoice

	return nil
}

func (r *invoiceRepo) FindByProjectRef(_ context.Context, organizationID, projectID string) (*models.Invoice, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	for _, invoice := range r.p.invoices {
		if invoice.OrganizationID != organizationID {
			continue
		}

		if invoice.ProjectID == projectID || strings.Contains(invoice.Notes, "[project:"+projectID+"]") {
			copied := invoice

			return &copied, nil
		}
	}

	return nil, nil
}

func (r *invoiceRepo) FindByMarker(_ context.Context, organizationID, marker string) (*models.Invoice, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	for _, invoice := range r.p.invoices {
		if invoice.OrganizationID == organizationID && strings.Contains(invoice.Notes, marker) {
			copied := invoice

			return &copied, nil
		}
	}

	return nil, nil
}

func (r *invoiceRepo) CountForMonth(_ context.Context, organizationID string, year int, month time.Month) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	count := 0

	for _, invoice := range r.p.invoices {
		if invoice.OrganizationID == organizationID &&
			invoice.IssuedAt.Year() == year && invoice.IssuedAt.Month() == month {
			count++
		}
	}

	return count, nil
}

func (r *invoiceRepo) CountOverdue(_ context.Context, organizationID string, now time.Time) (int, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	count := 0

	for _, invoice := range r.p.invoices {
		if invoice.OrganizationID != organizationID || invoice.Status == models.InvoiceStatusPaid {
			continue
		}

		if invoice.Status == models.InvoiceStatusOverdue ||
			(invoice.DueAt != nil && invoice.DueAt.Before(now)) {
			count++
		}
	}

	return count, nil
}

type resourceRepo struct{ p *Persistence }

func (r *resourceRepo) Upsert(_ context.Context, resource *models.ProjectResource) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	key := resourceKey(resource.ProjectID, resource.UserID)

	if existing, exists := r.p.resources[key]; exists {
		resource.ID = existing.ID
		resource.CreatedAt = existing.CreatedAt
		r.p.resources[key] = *resource

		return nil
	}

	if resource.ID == "" {
		resource.ID = newID()
	}

	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now().UTC()
	}

	r.p.resources[key] = *resource

	return nil
}

type orgRepo struct{ p *Persistence }

func (r *orgRepo) GetByID(_ context.Context, id string) (*models.Organization, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	org, exists := r.p.organizations[id]
	if !exists {
		return nil, persistence.NewStoreError("GetByID", id, id, persistence.ErrOrganizationNotFound)
	}

	copied := org

	return &copied, nil
}

func (r *orgRepo) ListIDs(_ context.Context) ([]string, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	ids := make([]string, 0, len(r.p.organizations))
	for id := range r.p.organizations {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids, nil
}

type userRepo struct{ p *Persistence }

func (r *userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	user, exists := r.p.users[id]
	if !exists {
		return nil, persistence.NewStoreError("GetByID", "", id, persistence.ErrUserNotFound)
	}

	copied := user

	return &copied, nil
}

type runRepo struct{ p *Persistence }

func (r *runRepo) Create(_ context.Context, run *models.WorkflowRun) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if run.ID == "" {
		run.ID = newID()
	}

	r.p.runs[run.ID] = *run

	return nil
}

func (r *runRepo) Update(_ context.Context, run *models.WorkflowRun) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	existing, exists := r.p.runs[run.ID]
	if !exists || existing.OrganizationID != run.OrganizationID {
		return persistence.NewStoreError("Update", run.OrganizationID, run.ID, persistence.ErrRunNotFound)
	}

	r.p.runs[run.ID] = *run

	return nil
}

func (r *runRepo) GetByID(_ context.Context, organizationID, id string) (*models.WorkflowRun, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	run, exists := r.p.runs[id]
	if !exists || run.OrganizationID != organizationID {
		return nil, persistence.NewStoreError("GetByID", organizationID, id, persistence.ErrRunNotFound)
	}

	copied := run

	return &copied, nil
}

func (r *runRepo) ListByOrganization(_ context.Context, organizationID string, limit int) ([]*models.WorkflowRun, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	runs := make([]*models.WorkflowRun, 0)

	for _, run := range r.p.runs {
		if run.OrganizationID == organizationID {
			copied := run
			runs = append(runs, &copied)
		}
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

type configRepo struct{ p *Persistence }

func (r *configRepo) ListByOrganization(_ context.Context, organizationID string) ([]*models.WorkflowConfig, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	configs := make([]*models.WorkflowConfig, 0)

	for _, config := range r.p.configs {
		if config.OrganizationID == organizationID {
			copied := config
			configs = append(configs, &copied)
		}
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].WorkflowKey < configs[j].WorkflowKey })

	return configs, nil
}

func (r *configRepo) Upsert(_ context.Context, config *models.WorkflowConfig) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	key := configKey(config.OrganizationID, config.WorkflowKey)
	now := time.Now().UTC()

	if existing, exists := r.p.configs[key]; exists {
		config.CreatedAt = existing.CreatedAt
		config.TemplateVersion = existing.TemplateVersion

		if existing.EmailSubject != config.EmailSubject || existing.EmailBody != config.EmailBody {
			config.TemplateVersion++
		}
	} else {
		if config.CreatedAt.IsZero() {
			config.CreatedAt = now
		}

		config.TemplateVersion = 1
	}

	config.UpdatedAt = now
	r.p.configs[key] = *config

	return nil
}
