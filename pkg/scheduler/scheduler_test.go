package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/log"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/persistence/memory"
)

func TestNewHealthScheduler_RejectsBadCron(t *testing.T) {
	store := memory.NewPersistence()

	_, err := NewHealthScheduler(store, func(context.Context, events.Event) error { return nil },
		log.WithModule("scheduler_test"), "not a cron")
	require.Error(t, err)
}

func TestNewHealthScheduler_DefaultsCron(t *testing.T) {
	store := memory.NewPersistence()

	s, err := NewHealthScheduler(store, func(context.Context, events.Event) error { return nil },
		log.WithModule("scheduler_test"), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultCronExpr, s.cronExpr)
}

func TestEmitAll_OnePerOrganization(t *testing.T) {
	store := memory.NewPersistence()
	store.SeedOrganization(models.Organization{ID: "org-1", Name: "Acme", OwnerEmail: "acme@example.com"})
	store.SeedOrganization(models.Organization{ID: "org-2", Name: "Globex"})

	var dispatched []events.Event

	s, err := NewHealthScheduler(store, func(_ context.Context, event events.Event) error {
		dispatched = append(dispatched, event)

		return nil
	}, log.WithModule("scheduler_test"), "")
	require.NoError(t, err)

	s.emitAll(context.Background())

	require.Len(t, dispatched, 2)

	byOrg := map[string]events.Event{}

	for _, event := range dispatched {
		assert.Equal(t, events.ModuleOperations, event.Module)
		assert.Equal(t, "health_snapshot", event.EntityType)
		assert.Equal(t, events.TypeCreated, event.EventType)
		assert.Equal(t, true, event.Payload["internal_health"])
		assert.False(t, event.TriggeredAt.IsZero())

		byOrg[event.OrganizationID] = event
	}

	// The owner receives the digest; organizations without an owner email
	// emit without a recipient.
	assert.Equal(t, "acme@example.com", byOrg["org-1"].Payload["recipient_email"])
	assert.NotContains(t, byOrg["org-2"].Payload, "recipient_email")
}
