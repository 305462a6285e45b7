package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/payload"
)

const InternalHealthKey = "internal-health"

// InternalHealth computes an operations snapshot and mails a digest to the
// actor, or to the recipient named in the payload when the event has no
// actor (the scheduled case). It only reacts to events explicitly flagged
// as health checks so that ordinary domain traffic never triggers it.
type InternalHealth struct {
	deps Deps
}

func NewInternalHealth(deps Deps) *InternalHealth {
	return &InternalHealth{deps: deps}
}

func (h *InternalHealth) Key() string { return InternalHealthKey }

func (h *InternalHealth) Defaults() Defaults {
	return Defaults{
		EmailSubject: "Operations snapshot for {{organization_name}}",
		EmailBody: "Hi {{actor_name}},\n\n" +
			"Here is the current operations snapshot for {{organization_name}}:\n\n" +
			"Active projects: {{active_projects}}\n" +
			"Projects at risk: {{at_risk_projects}}\n" +
			"Overdue invoices: {{overdue_invoices}}\n" +
			"Overdue tasks: {{overdue_tasks}}\n" +
			"Active clients: {{active_clients}}",
	}
}

func (h *InternalHealth) Matches(event events.Event) bool {
	n := event.Normalized()

	if !oneOf(n.Module, events.ModuleOperations, events.ModuleProjects, events.ModuleFinance, events.ModuleSystem, events.ModuleAnalytics) {
		return false
	}

	if !oneOf(n.EventType, events.TypeCreated, events.TypeUpdated, events.TypeStatusChanged) {
		return false
	}

	return healthFlagged(event)
}

func (h *InternalHealth) Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HandlerResult, error) {
	snapshot, err := h.deps.Ops.ComputeOperationsSnapshot(ctx, ec.Event.OrganizationID)
	if err != nil {
		return nil, err
	}

	recipient := ec.ActorEmail
	if recipient == "" {
		recipient, _ = payload.FirstEmail(ec.Event.Payload, "recipientEmail", "recipient_email")
	}

	if recipient == "" {
		return nil, fmt.Errorf("internal health digest: %w", ErrNoRecipient)
	}

	vars := ec.Variables()
	vars["active_projects"] = strconv.Itoa(snapshot.ActiveProjects)
	vars["at_risk_projects"] = strconv.Itoa(snapshot.AtRiskProjects)
	vars["overdue_invoices"] = strconv.Itoa(snapshot.OverdueInvoices)
	vars["overdue_tasks"] = strconv.Itoa(snapshot.OverdueTasks)
	vars["active_clients"] = strconv.Itoa(snapshot.ActiveClients)

	subject, messageID, err := sendNotification(ctx, h.deps, ec, recipient, vars)
	if err != nil {
		return nil, err
	}

	return &models.HandlerResult{
		Recipient: recipient,
		Subject:   subject,
		Sent:      true,
		MessageID: messageID,
		Details: map[string]any{
			"active_projects":  snapshot.ActiveProjects,
			"at_risk_projects": snapshot.AtRiskProjects,
			"overdue_invoices": snapshot.OverdueInvoices,
			"overdue_tasks":    snapshot.OverdueTasks,
			"active_clients":   snapshot.ActiveClients,
			"generated_at":     snapshot.GeneratedAt,
		},
	}, nil
}
