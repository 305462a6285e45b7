package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensyte/automation/pkg/channels/gochannel"
	"github.com/opensyte/automation/pkg/eventbus"
	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/log"
)

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, log.WithModule("eventbus_test"))
	defer func() {
		assert.NoError(t, bus.Close())
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan events.Event, 1)

	err = bus.Subscribe(ctx, func(_ context.Context, event events.Event) error {
		received <- event

		return nil
	})
	require.NoError(t, err)

	sent := events.Event{
		OrganizationID: "org-1",
		Module:         "crm",
		EntityType:     "deal",
		EventType:      "status_changed",
		Payload:        map[string]any{"status": "WON"},
		TriggeredAt:    time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, bus.Publish(ctx, sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.OrganizationID, got.OrganizationID)
		assert.Equal(t, sent.Module, got.Module)
		assert.Equal(t, "WON", got.Payload["status"])
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, log.WithModule("eventbus_test"))
	defer func() {
		assert.NoError(t, bus.Close())
	}()

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
