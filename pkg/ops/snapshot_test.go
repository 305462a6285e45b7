package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensyte/automation/pkg/models"
)

func TestComputeOperationsSnapshot(t *testing.T) {
	operations, store := newTestOps(t)

	past := time.Now().UTC().AddDate(0, 0, -10)
	future := time.Now().UTC().AddDate(0, 1, 0)

	store.SeedCustomer(models.Customer{
		ID: "c-1", OrganizationID: testOrg,
		Type: models.CustomerTypeClient, Status: models.CustomerStatusActive,
	})
	store.SeedCustomer(models.Customer{
		ID: "c-2", OrganizationID: testOrg,
		Type: models.CustomerTypeLead, Status: models.CustomerStatusProspect,
	})
	store.SeedProject(models.Project{
		ID: "p-active", OrganizationID: testOrg,
		Status: models.ProjectStatusInProgress, EndAt: &future,
	})
	store.SeedProject(models.Project{
		ID: "p-late", OrganizationID: testOrg,
		Status: models.ProjectStatusInProgress, EndAt: &past,
	})
	store.SeedProject(models.Project{
		ID: "p-done", OrganizationID: testOrg,
		Status: models.ProjectStatusCompleted,
	})

	err := store.Tasks().CreateBatch(context.Background(), []*models.Task{
		{OrganizationID: testOrg, ProjectID: "p-active", Title: "Late task", Status: models.TaskStatusOpen, DueAt: &past},
		{OrganizationID: testOrg, ProjectID: "p-active", Title: "Future task", Status: models.TaskStatusOpen, DueAt: &future},
	})
	require.NoError(t, err)

	snapshot, err := operations.ComputeOperationsSnapshot(context.Background(), testOrg)
	require.NoError(t, err)

	assert.Equal(t, 2, snapshot.ActiveProjects)
	assert.Equal(t, 1, snapshot.AtRiskProjects)
	assert.Equal(t, 1, snapshot.ActiveClients)
	assert.Equal(t, 1, snapshot.OverdueTasks)
	assert.Zero(t, snapshot.OverdueInvoices)
	assert.False(t, snapshot.GeneratedAt.IsZero())
}
