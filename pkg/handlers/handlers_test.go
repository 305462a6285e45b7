package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/log"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/notifier"
	"github.com/opensyte/automation/pkg/ops"
	"github.com/opensyte/automation/pkg/persistence/memory"
)

const testOrg = "org-1"

func newTestDeps(t *testing.T) (Deps, *memory.Persistence, *notifier.Recorder) {
	t.Helper()

	store := memory.NewPersistence()
	store.SeedOrganization(models.Organization{ID: testOrg, Name: "Acme"})

	recorder := notifier.NewRecorder()

	deps := Deps{
		Store:    store,
		Ops:      ops.New(store, log.WithModule("handlers_test")),
		Notifier: recorder,
	}

	return deps, store, recorder
}

func execContext(handler Handler, event events.Event) *models.ExecutionContext {
	defaults := handler.Defaults()

	return &models.ExecutionContext{
		Event:            event,
		OrganizationName: "Acme",
		ActorName:        "Olga",
		ActorEmail:       "olga@example.com",
		Config: models.ResolvedConfig{
			Enabled:      true,
			EmailSubject: defaults.EmailSubject,
			EmailBody:    defaults.EmailBody,
		},
		Logger: log.WithModule("handlers_test"),
	}
}

func TestLeadToClient_Execute(t *testing.T) {
	deps, store, recorder := newTestDeps(t)
	store.SeedCustomer(models.Customer{
		ID:             "c-1",
		OrganizationID: testOrg,
		Name:           "Ana",
		Email:          "ana@example.com",
		Type:           models.CustomerTypeLead,
		Status:         models.CustomerStatusProspect,
	})

	handler := NewLeadToClient(deps)
	event := events.Event{
		OrganizationID: testOrg,
		Module:         "crm",
		EntityType:     "deal",
		EventType:      "status_changed",
		Payload:        map[string]any{"customerId": "c-1", "status": "WON"},
	}

	result, err := handler.Execute(context.Background(), execContext(handler, event))
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", result.Recipient)
	assert.True(t, result.Sent)
	assert.Equal(t, true, result.Details["was_updated"])

	customer, err := store.Customers().GetByID(context.Background(), testOrg, "c-1")
	require.NoError(t, err)
	assert.Equal(t, models.CustomerTypeClient, customer.Type)
	assert.Equal(t, models.CustomerStatusActive, customer.Status)

	messages := recorder.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Subject, "Ana")
	assert.Contains(t, messages[0].HTMLBody, "<p>")
}

func TestLeadToClient_Execute_MissingCustomerID(t *testing.T) {
	deps, _, _ := newTestDeps(t)

	handler := NewLeadToClient(deps)
	event := events.Event{
		OrganizationID: testOrg,
		Module:         "crm",
		EntityType:     "deal",
		EventType:      "status_changed",
		Payload:        map[string]any{"status": "WON"},
	}

	_, err := handler.Execute(context.Background(), execContext(handler, event))
	require.ErrorIs(t, err, ErrMissingEntityID)
}

func TestClientOnboarding_Execute(t *testing.T) {
	deps, store, recorder := newTestDeps(t)
	store.SeedCustomer(models.Customer{
		ID:             "c-1",
		OrganizationID: testOrg,
		Name:           "Ana",
		Email:          "ana@example.com",
	})
	store.SeedUser(models.User{ID: "u-1", Name: "Olga", Email: "olga@example.com"})

	handler := NewClientOnboarding(deps)
	event := events.Event{
		OrganizationID: testOrg,
		Module:         "crm",
		EntityType:     "contact",
		EventType:      "created",
		UserID:         "u-1",
		Payload:        map[string]any{"id": "c-1", "email": "ana@example.com"},
	}

	result, err := handler.Execute(context.Background(), execContext(handler, event))
	require.NoError(t, err)
	assert.Equal(t, true, result.Details["created"])
	assert.Equal(t, 3, result.Details["tasks_seeded"])

	projectID, ok := result.Details["project_id"].(string)
	require.True(t, ok)

	count, err := store.Tasks().CountByProject(context.Background(), testOrg, projectID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Redelivery reuses the project and seeds nothing.
	result, err = handler.Execute(context.Background(), execContext(handler, event))
	require.NoError(t, err)
	assert.Equal(t, false, result.Details["created"])
	assert.Equal(t, 0, result.Details["tasks_seeded"])

	assert.Len(t, recorder.Messages(), 2)
}

func TestProjectLifecycle_Execute_Created(t *testing.T) {
	deps, store, _ := newTestDeps(t)
	store.SeedCustomer(models.Customer{
		ID: "c-1", OrganizationID: testOrg, Name: "Ana", Email: "ana@example.com",
	})
	store.SeedProject(models.Project{
		ID: "p-1", OrganizationID: testOrg, CustomerID: "c-1", Name: "Relaunch", OwnerID: "u-1",
	})

	handler := NewProjectLifecycle(deps)
	event := events.Event{
		OrganizationID: testOrg,
		Module:         "projects",
		EntityType:     "project",
		EventType:      "created",
		Payload:        map[string]any{"projectId": "p-1"},
	}

	result, err := handler.Execute(context.Background(), execContext(handler, event))
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", result.Recipient)
	assert.Equal(t, "underway", result.Details["phase"])
}

func TestInvoiceTracking_Execute_SkipsWithoutBudget(t *testing.T) {
	deps, store, recorder := newTestDeps(t)
	store.SeedProject(models.Project{
		ID: "p-1", OrganizationID: testOrg, Name: "Pro bono",
	})

	handler := NewInvoiceTracking(deps)
	event := events.Event{
		OrganizationID: testOrg,
		Module:         "projects",
		EntityType:     "project",
		EventType:      "status_changed",
		Payload:        map[string]any{"projectId": "p-1", "status": "COMPLETED"},
	}

	result, err := handler.Execute(context.Background(), execContext(handler, event))
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.Equal(t, false, result.Details["invoice_created"])
	assert.Empty(t, recorder.Messages())
	assert.Empty(t, store.AllInvoices())
}

func TestContractRenewal_Execute(t *testing.T) {
	deps, store, recorder := newTestDeps(t)

	handler := NewContractRenewal(deps)
	renewal := time.Now().UTC().AddDate(0, 2, 0).Format("2006-01-02")
	event := events.Event{
		OrganizationID: testOrg,
		Module:         "finance",
		EntityType:     "contract",
		EventType:      "updated",
		Payload: map[string]any{
			"id":          "contract-7",
			"renewalDate": renewal,
			"amount":      "1200.00",
			"currency":    "EUR",
			"ownerEmail":  "owner@example.com",
		},
	}

	result, err := handler.Execute(context.Background(), execContext(handler, event))
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", result.Recipient)
	assert.Equal(t, true, result.Details["invoice_created"])

	invoices := store.AllInvoices()
	require.Len(t, invoices, 1)
	assert.True(t, invoices[0].Amount.Equal(decimal.RequireFromString("1200.00")))
	assert.Equal(t, "EUR", invoices[0].Currency)
	assert.Contains(t, invoices[0].Notes, "[renewal:contract-7]")

	// Same contract event again drafts nothing new.
	result, err = handler.Execute(context.Background(), execContext(handler, event))
	require.NoError(t, err)
	assert.Equal(t, false, result.Details["invoice_created"])
	assert.Len(t, store.AllInvoices(), 1)

	assert.Len(t, recorder.Messages(), 2)
}

func TestContractRenewal_Execute_NoAmountSkipsSend(t *testing.T) {
	deps, store, recorder := newTestDeps(t)

	handler := NewContractRenewal(deps)
	renewal := time.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02")
	event := events.Event{
		OrganizationID: testOrg,
		Module:         "finance",
		EntityType:     "contract",
		EventType:      "updated",
		Payload: map[string]any{
			"id":          "contract-8",
			"renewalDate": renewal,
			"ownerEmail":  "owner@example.com",
		},
	}

	result, err := handler.Execute(context.Background(), execContext(handler, event))
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.Equal(t, false, result.Details["invoice_created"])
	assert.Equal(t, "no positive amount", result.Details["reason"])
	assert.Empty(t, recorder.Messages())
	assert.Empty(t, store.AllInvoices())
}

func TestInternalHealth_Execute(t *testing.T) {
	deps, store, recorder := newTestDeps(t)
	store.SeedProject(models.Project{
		ID: "p-1", OrganizationID: testOrg, Status: models.ProjectStatusInProgress,
	})

	handler := NewInternalHealth(deps)
	event := events.Event{
		OrganizationID: testOrg,
		Module:         "operations",
		EntityType:     "health_snapshot",
		EventType:      "created",
	}

	result, err := handler.Execute(context.Background(), execContext(handler, event))
	require.NoError(t, err)
	assert.Equal(t, "olga@example.com", result.Recipient)
	assert.Equal(t, 1, result.Details["active_projects"])

	messages := recorder.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].HTMLBody, "Active projects: 1")
}

func TestInternalHealth_Execute_NoActor(t *testing.T) {
	deps, _, _ := newTestDeps(t)

	handler := NewInternalHealth(deps)
	ec := execContext(handler, events.Event{
		OrganizationID: testOrg,
		Module:         "operations",
		EntityType:     "health_snapshot",
		EventType:      "created",
	})
	ec.ActorEmail = ""

	_, err := handler.Execute(context.Background(), ec)
	require.ErrorIs(t, err, ErrNoRecipient)
}

func TestInternalHealth_Execute_PayloadRecipientFallback(t *testing.T) {
	deps, _, recorder := newTestDeps(t)

	handler := NewInternalHealth(deps)
	ec := execContext(handler, events.Event{
		OrganizationID: testOrg,
		Module:         "operations",
		EntityType:     "health_snapshot",
		EventType:      "created",
		Payload: map[string]any{
			"internal_health": true,
			"source":          "scheduler",
			"recipient_email": "owner@example.com",
		},
	})
	ec.ActorEmail = ""

	result, err := handler.Execute(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", result.Recipient)

	messages := recorder.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "owner@example.com", messages[0].To)
}
