// Package ops implements the idempotent domain side-effect operations shared
// by the workflow handlers. Every ensure-* operation checks for an existing
// record keyed by a stable business key before creating one, so redelivered
// events never duplicate work.
package ops

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/persistence"
)

// Operations bundles the domain side-effect operations over one store.
type Operations struct {
	store  persistence.Persistence
	logger *slog.Logger
}

func New(store persistence.Persistence, logger *slog.Logger) *Operations {
	return &Operations{
		store:  store,
		logger: logger.With("module", "ops"),
	}
}

// PromoteResult reports whether promoting actually wrote anything.
type PromoteResult struct {
	Customer   *models.Customer
	WasUpdated bool
}

// PromoteCustomerToClient moves a customer to CLIENT/ACTIVE. Already-promoted
// customers are returned unchanged with WasUpdated=false.
func (o *Operations) PromoteCustomerToClient(ctx context.Context, organizationID, customerID string) (*PromoteResult, error) {
	customer, err := o.store.Customers().GetByID(ctx, organizationID, customerID)
	if err != nil {
		return nil, err
	}

	if customer.Type == models.CustomerTypeClient && customer.Status == models.CustomerStatusActive {
		return &PromoteResult{Customer: customer, WasUpdated: false}, nil
	}

	customer.Type = models.CustomerTypeClient
	customer.Status = models.CustomerStatusActive

	err = o.store.Customers().Update(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("failed to promote customer %s: %w", customerID, err)
	}

	o.logger.Info("Promoted customer to client",
		"organization_id", organizationID,
		"customer_id", customerID)

	return &PromoteResult{Customer: customer, WasUpdated: true}, nil
}

// EnsureProjectResult reports the onboarding project and whether this call
// created it.
type EnsureProjectResult struct {
	Project     *models.Project
	Created     bool
	TasksSeeded int
}

// EnsureOnboardingProject returns the customer's most recent project if one
// exists; otherwise it creates a new onboarding project and seeds its tasks.
func (o *Operations) EnsureOnboardingProject(ctx context.Context, organizationID, customerID, name, ownerID string) (*EnsureProjectResult, error) {
	existing, err := o.store.Projects().LatestByCustomer(ctx, organizationID, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer projects: %w", err)
	}

	if existing != nil {
		return &EnsureProjectResult{Project: existing, Created: false}, nil
	}

	now := time.Now().UTC()
	start := now
	end := now.AddDate(0, 1, 0)

	project := &models.Project{
		OrganizationID: organizationID,
		CustomerID:     customerID,
		Name:           name,
		Description:    "Client onboarding",
		Status:         models.ProjectStatusInProgress,
		OwnerID:        ownerID,
		StartAt:        &start,
		EndAt:          &end,
	}

	err = o.store.Projects().Create(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to create onboarding project: %w", err)
	}

	seeded, err := o.SeedOnboardingTasks(ctx, organizationID, project.ID, ownerID)
	if err != nil {
		return nil, err
	}

	if ownerID != "" {
		if err := o.EnsureProjectOwnerResource(ctx, organizationID, project.ID, ownerID); err != nil {
			return nil, err
		}
	}

	o.logger.Info("Created onboarding project",
		"organization_id", organizationID,
		"customer_id", customerID,
		"project_id", project.ID,
		"tasks_seeded", seeded)

	return &EnsureProjectResult{Project: project, Created: true, TasksSeeded: seeded}, nil
}

// Onboarding checklist seeded into every new onboarding project, with due
// dates staggered from creation time.
var onboardingTasks = []struct {
	title   string
	dueDays int
}{
	{"Schedule kickoff call", 3},
	{"Collect account and billing details", 5},
	{"Prepare welcome package", 7},
}

// SeedOnboardingTasks inserts the fixed onboarding task set. It no-ops when
// the project already has any tasks, which is what prevents duplicate
// seeding on retried events.
func (o *Operations) SeedOnboardingTasks(ctx context.Context, organizationID, projectID, assigneeID string) (int, error) {
	count, err := o.store.Tasks().CountByProject(ctx, organizationID, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to count project tasks: %w", err)
	}

	if count > 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	tasks := make([]*models.Task, 0, len(onboardingTasks))

	for _, seed := range onboardingTasks {
		due := now.AddDate(0, 0, seed.dueDays)

		tasks = append(tasks, &models.Task{
			OrganizationID: organizationID,
			ProjectID:      projectID,
			Title:          seed.title,
			Status:         models.TaskStatusOpen,
			AssigneeID:     assigneeID,
			DueAt:          &due,
		})
	}

	err = o.store.Tasks().CreateBatch(ctx, tasks)
	if err != nil {
		return 0, fmt.Errorf("failed to seed onboarding tasks: %w", err)
	}

	return len(tasks), nil
}

// EnsureProjectOwnerResource assigns the user to the project. The upsert is
// keyed by (project, user), so repeated calls are safe.
func (o *Operations) EnsureProjectOwnerResource(ctx context.Context, organizationID, projectID, userID string) error {
	err := o.store.ProjectResources().Upsert(ctx, &models.ProjectResource{
		OrganizationID: organizationID,
		ProjectID:      projectID,
		UserID:         userID,
		Role:           "owner",
	})
	if err != nil {
		return fmt.Errorf("failed to assign project owner: %w", err)
	}

	return nil
}

// CreateProjectInvoice drafts an invoice for a completed project, correlated
// to the project by id and a notes marker. Returns the existing invoice with
// created=false when one is already correlated, and (nil, false, nil) when
// no positive amount can be resolved from the project budget.
func (o *Operations) CreateProjectInvoice(ctx context.Context, organizationID string, project *models.Project) (*models.Invoice, bool, error) {
	existing, err := o.store.Invoices().FindByProjectRef(ctx, organizationID, project.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up project invoice: %w", err)
	}

	if existing != nil {
		return existing, false, nil
	}

	if project.Budget == nil || !project.Budget.IsPositive() {
		o.logger.Info("Skipping invoice creation, no positive amount",
			"organization_id", organizationID,
			"project_id", project.ID)

		return nil, false, nil
	}

	currency := project.Currency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now().UTC()

	number, err := o.nextInvoiceNumber(ctx, organizationID, now)
	if err != nil {
		return nil, false, err
	}

	due := now.AddDate(0, 0, 30)

	invoice := &models.Invoice{
		OrganizationID: organizationID,
		CustomerID:     project.CustomerID,
		ProjectID:      project.ID,
		InvoiceNumber:  number,
		Status:         models.InvoiceStatusDraft,
		Amount:         *project.Budget,
		Currency:       currency,
		Notes:          fmt.Sprintf("Invoice for completed project %q [project:%s]", project.Name, project.ID),
		IssuedAt:       now,
		DueAt:          &due,
	}

	err = o.store.Invoices().Create(ctx, invoice)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create project invoice: %w", err)
	}

	o.logger.Info("Created project invoice",
		"organization_id", organizationID,
		"project_id", project.ID,
		"invoice_number", number)

	return invoice, true, nil
}

// EnsureRenewalInvoiceDraft drafts a renewal invoice unless one carrying the
// same marker already exists. Returns (nil, false, nil) when the amount is
// not positive.
func (o *Operations) EnsureRenewalInvoiceDraft(ctx context.Context, organizationID, customerID string, amount decimal.Decimal, currency string, renewalDate time.Time, marker string) (*models.Invoice, bool, error) {
	existing, err := o.store.Invoices().FindByMarker(ctx, organizationID, marker)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up renewal invoice: %w", err)
	}

	if existing != nil {
		return existing, false, nil
	}

	if !amount.IsPositive() {
		return nil, false, nil
	}

	if currency == "" {
		currency = "USD"
	}

	now := time.Now().UTC()

	number, err := o.nextInvoiceNumber(ctx, organizationID, now)
	if err != nil {
		return nil, false, err
	}

	due := renewalDate
	if due.Before(now) {
		due = now.AddDate(0, 0, 14)
	}

	invoice := &models.Invoice{
		OrganizationID: organizationID,
		CustomerID:     customerID,
		InvoiceNumber:  number,
		Status:         models.InvoiceStatusDraft,
		Amount:         amount,
		Currency:       currency,
		Notes:          fmt.Sprintf("Contract renewal draft %s", marker),
		IssuedAt:       now,
		DueAt:          &due,
	}

	err = o.store.Invoices().Create(ctx, invoice)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create renewal invoice: %w", err)
	}

	return invoice, true, nil
}

// nextInvoiceNumber computes the tenant-scoped monotonic invoice number
// INV-YYYYMM-<count+1>.
func (o *Operations) nextInvoiceNumber(ctx context.Context, organizationID string, now time.Time) (string, error) {
	count, err := o.store.Invoices().CountForMonth(ctx, organizationID, now.Year(), now.Month())
	if err != nil {
		return "", fmt.Errorf("failed to count invoices for numbering: %w", err)
	}

	return fmt.Sprintf("INV-%04d%02d-%d", now.Year(), int(now.Month()), count+1), nil
}
