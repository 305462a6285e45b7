package models

import (
	"log/slog"

	"github.com/opensyte/automation/pkg/events"
)

// ExecutionContext is handed to a handler's Execute. It carries the
// triggering event, shared per-event lookups resolved once by the
// dispatcher, and the configuration merged over the handler's defaults.
type ExecutionContext struct {
	Event            events.Event
	OrganizationName string
	ActorName        string
	ActorEmail       string
	Config           ResolvedConfig
	Logger           *slog.Logger
}

// Variables returns the base template variable mapping shared by every
// handler; handlers extend it with their own entries.
func (c *ExecutionContext) Variables() map[string]any {
	vars := map[string]any{
		"organization_name": c.OrganizationName,
		"actor_name":        c.ActorName,
		"actor_email":       c.ActorEmail,
		"module":            c.Event.Module,
		"entity_type":       c.Event.EntityType,
		"event_type":        c.Event.EventType,
	}

	if !c.Event.TriggeredAt.IsZero() {
		vars["triggered_at"] = c.Event.TriggeredAt
	}

	return vars
}

// HandlerResult is the ephemeral outcome a handler returns to the
// dispatcher. Details becomes the persisted run result.
type HandlerResult struct {
	Recipient string         `json:"recipient,omitempty"`
	Subject   string         `json:"subject,omitempty"`
	Sent      bool           `json:"sent"`
	MessageID string         `json:"message_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// ExecutionSummary is one entry of the per-handler report returned by the
// dispatcher, in registry order, one per matched handler.
type ExecutionSummary struct {
	WorkflowKey string `json:"workflow_key"`
	Matched     bool   `json:"matched"`
	Executed    bool   `json:"executed"`
	Success     bool   `json:"success"`
	RunID       string `json:"run_id,omitempty"`
	Error       string `json:"error,omitempty"`
}
