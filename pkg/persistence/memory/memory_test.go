package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/persistence"
)

func TestTenantIsolation(t *testing.T) {
	store := NewPersistence()
	store.SeedCustomer(models.Customer{ID: "c-1", OrganizationID: "org-1", Name: "Ana"})

	_, err := store.Customers().GetByID(context.Background(), "org-2", "c-1")
	require.Error(t, err)
	assert.True(t, persistence.IsNotFound(err))

	customer, err := store.Customers().GetByID(context.Background(), "org-1", "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", customer.Name)
}

func TestRuns_ListScopedAndLimited(t *testing.T) {
	store := NewPersistence()

	for _, org := range []string{"org-1", "org-1", "org-2"} {
		require.NoError(t, store.Runs().Create(context.Background(), &models.WorkflowRun{
			OrganizationID: org,
			WorkflowKey:    "lead-to-client",
			Status:         models.RunStatusCompleted,
		}))
	}

	runs, err := store.Runs().ListByOrganization(context.Background(), "org-1", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = store.Runs().ListByOrganization(context.Background(), "org-1", 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRuns_UpdateChecksTenant(t *testing.T) {
	store := NewPersistence()

	run := &models.WorkflowRun{OrganizationID: "org-1", WorkflowKey: "k", Status: models.RunStatusRunning}
	require.NoError(t, store.Runs().Create(context.Background(), run))

	stolen := *run
	stolen.OrganizationID = "org-2"
	err := store.Runs().Update(context.Background(), &stolen)
	require.Error(t, err)
	assert.True(t, persistence.IsNotFound(err))
}

func TestProjects_LatestByCustomer(t *testing.T) {
	store := NewPersistence()

	latest, err := store.Projects().LatestByCustomer(context.Background(), "org-1", "c-1")
	require.NoError(t, err)
	assert.Nil(t, latest, "no projects reports (nil, nil)")

	earlier := time.Now().UTC().Add(-time.Hour)

	first := &models.Project{OrganizationID: "org-1", CustomerID: "c-1", Name: "First", CreatedAt: earlier}
	require.NoError(t, store.Projects().Create(context.Background(), first))

	second := &models.Project{OrganizationID: "org-1", CustomerID: "c-1", Name: "Second"}
	require.NoError(t, store.Projects().Create(context.Background(), second))

	latest, err = store.Projects().LatestByCustomer(context.Background(), "org-1", "c-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "Second", latest.Name)
}

func TestInvoices_FindByMarker(t *testing.T) {
	store := NewPersistence()

	found, err := store.Invoices().FindByMarker(context.Background(), "org-1", "[renewal:sub-1]")
	require.NoError(t, err)
	assert.Nil(t, found)

	require.NoError(t, store.Invoices().Create(context.Background(), &models.Invoice{
		OrganizationID: "org-1",
		InvoiceNumber:  "INV-202608-1",
		Status:         models.InvoiceStatusDraft,
		Notes:          "Contract renewal draft [renewal:sub-1]",
	}))

	found, err = store.Invoices().FindByMarker(context.Background(), "org-1", "[renewal:sub-1]")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "INV-202608-1", found.InvoiceNumber)

	// Other tenants never see it.
	found, err = store.Invoices().FindByMarker(context.Background(), "org-2", "[renewal:sub-1]")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestProjectResources_UpsertIdempotent(t *testing.T) {
	store := NewPersistence()

	resource := &models.ProjectResource{
		OrganizationID: "org-1",
		ProjectID:      "p-1",
		UserID:         "u-1",
		Role:           "owner",
	}

	require.NoError(t, store.ProjectResources().Upsert(context.Background(), resource))
	require.NoError(t, store.ProjectResources().Upsert(context.Background(), resource))

	resource.Role = "member"
	require.NoError(t, store.ProjectResources().Upsert(context.Background(), resource))
}

func TestConfigs_TemplateVersioning(t *testing.T) {
	store := NewPersistence()

	config := &models.WorkflowConfig{
		OrganizationID: "org-1",
		WorkflowKey:    "invoice-tracking",
		Enabled:        true,
		EmailSubject:   "Your invoice",
	}

	require.NoError(t, store.Configs().Upsert(context.Background(), config))
	assert.Equal(t, 1, config.TemplateVersion)

	// Toggling enablement alone keeps the template revision.
	config.Enabled = false
	require.NoError(t, store.Configs().Upsert(context.Background(), config))
	assert.Equal(t, 1, config.TemplateVersion)

	// Changing a template bumps it.
	config.EmailSubject = "Invoice for {{project_name}}"
	require.NoError(t, store.Configs().Upsert(context.Background(), config))
	assert.Equal(t, 2, config.TemplateVersion)

	configs, err := store.Configs().ListByOrganization(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, 2, configs[0].TemplateVersion)
}
