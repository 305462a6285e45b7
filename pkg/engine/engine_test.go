package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/handlers"
	"github.com/opensyte/automation/pkg/log"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/notifier"
	"github.com/opensyte/automation/pkg/ops"
	"github.com/opensyte/automation/pkg/persistence/memory"
)

const testOrg = "org-1"

// stubHandler lets tests script handler behavior independently of the real
// catalog.
type stubHandler struct {
	key     string
	matches bool
	execute func(ctx context.Context, ec *models.ExecutionContext) (*models.HandlerResult, error)
}

func (h *stubHandler) Key() string { return h.key }

func (h *stubHandler) Defaults() handlers.Defaults {
	return handlers.Defaults{EmailSubject: "subject", EmailBody: "body"}
}

func (h *stubHandler) Matches(events.Event) bool { return h.matches }

func (h *stubHandler) Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HandlerResult, error) {
	return h.execute(ctx, ec)
}

func newTestStore(t *testing.T) *memory.Persistence {
	t.Helper()

	store := memory.NewPersistence()
	store.SeedOrganization(models.Organization{ID: testOrg, Name: "Acme"})
	store.SeedUser(models.User{ID: "u-1", Name: "Olga Owner", Email: "olga@example.com"})

	return store
}

func enableWorkflow(store *memory.Persistence, key string) {
	store.SeedConfig(models.WorkflowConfig{
		OrganizationID: testOrg,
		WorkflowKey:    key,
		Enabled:        true,
	})
}

func TestExecute_MissingOrganization(t *testing.T) {
	eng := New(newTestStore(t), handlers.NewRegistryWith(), log.WithModule("test"), nil)

	_, err := eng.Execute(context.Background(), events.Event{Module: "crm"})
	require.ErrorIs(t, err, ErrMissingOrganization)
}

func TestExecute_NoMatchIsEmptyAndSilent(t *testing.T) {
	store := newTestStore(t)
	recorder := notifier.NewRecorder()
	registry := handlers.NewRegistry(handlers.Deps{
		Store:    store,
		Ops:      ops.New(store, log.WithModule("test")),
		Notifier: recorder,
	})
	eng := New(store, registry, log.WithModule("test"), nil)

	summaries, err := eng.Execute(context.Background(), events.Event{
		OrganizationID: testOrg,
		Module:         "hr",
		EntityType:     "employee",
		EventType:      "created",
	})
	require.NoError(t, err)
	assert.Empty(t, summaries)
	assert.Empty(t, store.AllRuns())
	assert.Empty(t, recorder.Messages())
}

func TestExecute_DisabledWorkflowCreatesNoRun(t *testing.T) {
	store := newTestStore(t)

	handler := &stubHandler{
		key:     "stub",
		matches: true,
		execute: func(context.Context, *models.ExecutionContext) (*models.HandlerResult, error) {
			t.Fatal("disabled handler must not execute")

			return nil, nil
		},
	}

	eng := New(store, handlers.NewRegistryWith(handler), log.WithModule("test"), nil)

	summaries, err := eng.Execute(context.Background(), events.Event{
		OrganizationID: testOrg,
		Module:         "crm",
		EntityType:     "deal",
		EventType:      "updated",
	})
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	summary := summaries[0]
	assert.True(t, summary.Matched)
	assert.False(t, summary.Executed)
	assert.False(t, summary.Success)
	assert.Equal(t, "Workflow disabled", summary.Error)
	assert.Empty(t, summary.RunID)
	assert.Empty(t, store.AllRuns())
}

func TestExecute_FailureIsolation(t *testing.T) {
	store := newTestStore(t)
	enableWorkflow(store, "first")
	enableWorkflow(store, "second")

	first := &stubHandler{
		key:     "first",
		matches: true,
		execute: func(context.Context, *models.ExecutionContext) (*models.HandlerResult, error) {
			return nil, errors.New("boom")
		},
	}
	second := &stubHandler{
		key:     "second",
		matches: true,
		execute: func(context.Context, *models.ExecutionContext) (*models.HandlerResult, error) {
			return &models.HandlerResult{Recipient: "to@example.com", Sent: true}, nil
		},
	}

	eng := New(store, handlers.NewRegistryWith(first, second), log.WithModule("test"), nil)

	summaries, err := eng.Execute(context.Background(), events.Event{
		OrganizationID: testOrg,
		Module:         "crm",
		EntityType:     "deal",
		EventType:      "updated",
	})
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.False(t, summaries[0].Success)
	assert.Equal(t, "boom", summaries[0].Error)
	assert.NotEmpty(t, summaries[0].RunID)

	assert.True(t, summaries[1].Success)
	assert.NotEmpty(t, summaries[1].RunID)

	runs := store.AllRuns()
	require.Len(t, runs, 2)

	byKey := map[string]models.WorkflowRun{}
	for _, run := range runs {
		byKey[run.WorkflowKey] = run
	}

	assert.Equal(t, models.RunStatusFailed, byKey["first"].Status)
	assert.Equal(t, "boom", byKey["first"].Error)
	assert.Equal(t, models.RunStatusCompleted, byKey["second"].Status)
	assert.Equal(t, "to@example.com", byKey["second"].EmailRecipient)
}

func TestExecute_PanicIsRecordedAsFailure(t *testing.T) {
	store := newTestStore(t)
	enableWorkflow(store, "panicky")

	handler := &stubHandler{
		key:     "panicky",
		matches: true,
		execute: func(context.Context, *models.ExecutionContext) (*models.HandlerResult, error) {
			panic("unexpected nil")
		},
	}

	eng := New(store, handlers.NewRegistryWith(handler), log.WithModule("test"), nil)

	summaries, err := eng.Execute(context.Background(), events.Event{
		OrganizationID: testOrg,
		Module:         "crm",
		EntityType:     "deal",
		EventType:      "updated",
	})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.False(t, summaries[0].Success)
	assert.Contains(t, summaries[0].Error, "panicked")

	runs := store.AllRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)
}

func TestExecute_ProjectCompletionEndToEnd(t *testing.T) {
	store := newTestStore(t)
	recorder := notifier.NewRecorder()

	store.SeedCustomer(models.Customer{
		ID:             "c-1",
		OrganizationID: testOrg,
		Name:           "Ana",
		Email:          "ana@example.com",
		Type:           models.CustomerTypeClient,
		Status:         models.CustomerStatusActive,
	})

	budget := decimal.RequireFromString("5000")
	store.SeedProject(models.Project{
		ID:             "p-1",
		OrganizationID: testOrg,
		CustomerID:     "c-1",
		Name:           "Website relaunch",
		Status:         models.ProjectStatusInProgress,
		Budget:         &budget,
		Currency:       "USD",
		OwnerID:        "u-1",
	})

	enableWorkflow(store, handlers.InvoiceTrackingKey)

	registry := handlers.NewRegistry(handlers.Deps{
		Store:    store,
		Ops:      ops.New(store, log.WithModule("test")),
		Notifier: recorder,
	})
	eng := New(store, registry, log.WithModule("test"), nil)

	summaries, err := eng.Execute(context.Background(), events.Event{
		OrganizationID: testOrg,
		Module:         "projects",
		EntityType:     "project",
		EventType:      "status_changed",
		UserID:         "u-1",
		Payload: map[string]any{
			"projectId": "p-1",
			"status":    "COMPLETED",
		},
	})
	require.NoError(t, err)

	// Completion matches both project-lifecycle and invoice-tracking; only
	// the latter is enabled for this tenant.
	require.Len(t, summaries, 2)
	assert.Equal(t, handlers.ProjectLifecycleKey, summaries[0].WorkflowKey)
	assert.Equal(t, "Workflow disabled", summaries[0].Error)

	assert.Equal(t, handlers.InvoiceTrackingKey, summaries[1].WorkflowKey)
	assert.True(t, summaries[1].Success)
	require.NotEmpty(t, summaries[1].RunID)

	invoices := store.AllInvoices()
	require.Len(t, invoices, 1)
	assert.Equal(t, models.InvoiceStatusDraft, invoices[0].Status)
	assert.True(t, invoices[0].Amount.Equal(budget))

	run, err := store.Runs().GetByID(context.Background(), testOrg, summaries[1].RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, "ana@example.com", run.EmailRecipient)
	require.NotNil(t, run.CompletedAt)
	require.NotNil(t, run.DurationMS)
	assert.Equal(t, invoices[0].InvoiceNumber, run.Result["invoice_number"])
	assert.Contains(t, run.Context, "payload")

	messages := recorder.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "ana@example.com", messages[0].To)

	// Redelivery of the same event drafts no second invoice.
	_, err = eng.Execute(context.Background(), events.Event{
		OrganizationID: testOrg,
		Module:         "projects",
		EntityType:     "project",
		EventType:      "status_changed",
		UserID:         "u-1",
		Payload: map[string]any{
			"projectId": "p-1",
			"status":    "COMPLETED",
		},
	})
	require.NoError(t, err)
	assert.Len(t, store.AllInvoices(), 1)
}

func TestExecute_ScheduledHealthDigest(t *testing.T) {
	store := memory.NewPersistence()
	store.SeedOrganization(models.Organization{ID: testOrg, Name: "Acme", OwnerEmail: "owner@example.com"})
	recorder := notifier.NewRecorder()

	enableWorkflow(store, handlers.InternalHealthKey)

	registry := handlers.NewRegistry(handlers.Deps{
		Store:    store,
		Ops:      ops.New(store, log.WithModule("test")),
		Notifier: recorder,
	})
	eng := New(store, registry, log.WithModule("test"), nil)

	// The event shape the health scheduler emits: no actor, recipient
	// resolved from the organization owner.
	summaries, err := eng.Execute(context.Background(), events.Event{
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
	require.NoError(t, err)

	require.Len(t, summaries, 1)
	assert.Equal(t, handlers.InternalHealthKey, summaries[0].WorkflowKey)
	assert.True(t, summaries[0].Success)
	assert.Empty(t, summaries[0].Error)

	run, err := store.Runs().GetByID(context.Background(), testOrg, summaries[0].RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, "owner@example.com", run.EmailRecipient)

	messages := recorder.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "owner@example.com", messages[0].To)
}
