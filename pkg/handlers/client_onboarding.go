package handlers

import (
	"context"
	"fmt"

	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/payload"
	"github.com/opensyte/automation/pkg/persistence"
)

const ClientOnboardingKey = "client-onboarding"

// ClientOnboarding provisions an onboarding project with its seeded task
// checklist when a new CRM contact with a resolvable email appears.
type ClientOnboarding struct {
	deps Deps
}

func NewClientOnboarding(deps Deps) *ClientOnboarding {
	return &ClientOnboarding{deps: deps}
}

func (h *ClientOnboarding) Key() string { return ClientOnboardingKey }

func (h *ClientOnboarding) Defaults() Defaults {
	return Defaults{
		EmailSubject: "Your onboarding with {{organization_name}} has started",
		EmailBody: "Hi {{customer_name}},\n\n" +
			"We have set up your onboarding project \"{{project_name}}\" and our team is on it.\n\n" +
			"You can expect a kickoff invitation within the next few days.",
	}
}

func (h *ClientOnboarding) Matches(event events.Event) bool {
	n := event.Normalized()

	if n.Module != events.ModuleCRM {
		return false
	}

	if !oneOf(n.EntityType, events.EntityContact, events.EntityCustomer, "client") {
		return false
	}

	if n.EventType != events.TypeCreated {
		return false
	}

	_, hasEmail := payload.FirstEmail(event.Payload, "email", "contactEmail", "contact_email", "emails")

	return hasEmail
}

func (h *ClientOnboarding) Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HandlerResult, error) {
	customerID, ok := payload.String(ec.Event.Payload,
		"customerId", "customer_id", "contactId", "contact_id", "id")
	if !ok {
		return nil, fmt.Errorf("client onboarding: %w", ErrMissingEntityID)
	}

	recipient, ok := payload.FirstEmail(ec.Event.Payload, "email", "contactEmail", "contact_email", "emails")
	if !ok {
		return nil, fmt.Errorf("client onboarding for customer %s: %w", customerID, ErrNoRecipient)
	}

	customerName, _ := payload.String(ec.Event.Payload, "name", "customerName", "customer_name")

	customer, err := h.deps.Store.Customers().GetByID(ctx, ec.Event.OrganizationID, customerID)
	if err == nil {
		customerName = customer.Name
	} else if !persistence.IsNotFound(err) {
		return nil, err
	}

	if customerName == "" {
		customerName = recipient
	}

	projectName := fmt.Sprintf("Onboarding - %s", customerName)

	ensured, err := h.deps.Ops.EnsureOnboardingProject(ctx, ec.Event.OrganizationID, customerID, projectName, ec.Event.UserID)
	if err != nil {
		return nil, err
	}

	vars := ec.Variables()
	vars["customer_name"] = customerName
	vars["project_name"] = ensured.Project.Name

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
			"customer_id":  customerID,
			"project_id":   ensured.Project.ID,
			"created":      ensured.Created,
			"tasks_seeded": ensured.TasksSeeded,
		},
	}, nil
}
