package handlers

import (
	"context"
	"fmt"

	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/payload"
)

const LeadToClientKey = "lead-to-client"

// LeadToClient converts a won deal or qualified contact into an active
// client and sends the conversion notice.
type LeadToClient struct {
	deps Deps
}

func NewLeadToClient(deps Deps) *LeadToClient {
	return &LeadToClient{deps: deps}
}

func (h *LeadToClient) Key() string { return LeadToClientKey }

func (h *LeadToClient) Defaults() Defaults {
	return Defaults{
		EmailSubject: "Welcome aboard, {{customer_name}}!",
		EmailBody: "Hi {{customer_name}},\n\n" +
			"Great news - your account with {{organization_name}} has been upgraded to an active client.\n\n" +
			"We will be in touch shortly with next steps.",
	}
}

func (h *LeadToClient) Matches(event events.Event) bool {
	n := event.Normalized()

	if n.Module != events.ModuleCRM {
		return false
	}

	if !oneOf(n.EntityType, events.EntityDeal, events.EntityContact) {
		return false
	}

	if !oneOf(n.EventType, events.TypeStatusChanged, events.TypeConverted, events.TypeCreated, events.TypeUpdated) {
		return false
	}

	return statusMatches(event.Payload, "WON", "CLOSED_WON", "QUALIFIED", "CLIENT", "CUSTOMER")
}

func (h *LeadToClient) Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HandlerResult, error) {
	customerID, ok := payload.String(ec.Event.Payload,
		"customerId", "customer_id", "contactId", "contact_id", "id")
	if !ok {
		return nil, fmt.Errorf("lead conversion: %w", ErrMissingEntityID)
	}

	promoted, err := h.deps.Ops.PromoteCustomerToClient(ctx, ec.Event.OrganizationID, customerID)
	if err != nil {
		return nil, err
	}

	recipient, ok := payload.FirstEmail(ec.Event.Payload, "email", "contactEmail", "contact_email", "emails")
	if !ok {
		recipient = promoted.Customer.Email
	}

	if recipient == "" {
		return nil, fmt.Errorf("lead conversion for customer %s: %w", customerID, ErrNoRecipient)
	}

	status, _ := payload.Status(ec.Event.Payload)

	vars := ec.Variables()
	vars["customer_name"] = promoted.Customer.Name
	vars["customer_email"] = recipient
	vars["status"] = status

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
			"customer_id": customerID,
			"was_updated": promoted.WasUpdated,
		},
	}, nil
}
