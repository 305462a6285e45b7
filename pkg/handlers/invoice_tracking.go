package handlers

import (
	"context"
	"fmt"

	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/payload"
	"github.com/opensyte/automation/pkg/persistence"
)

const InvoiceTrackingKey = "invoice-tracking"

// InvoiceTracking drafts an invoice when a project completes. Invoicing is a
// consequence of project completion in this business process, so the
// predicate keys off the project event rather than invoice events.
type InvoiceTracking struct {
	deps Deps
}

func NewInvoiceTracking(deps Deps) *InvoiceTracking {
	return &InvoiceTracking{deps: deps}
}

func (h *InvoiceTracking) Key() string { return InvoiceTrackingKey }

func (h *InvoiceTracking) Defaults() Defaults {
	return Defaults{
		EmailSubject: "Invoice {{invoice_number}} for {{project_name}}",
		EmailBody: "Hi {{customer_name}},\n\n" +
			"Project \"{{project_name}}\" has wrapped up. A draft invoice {{invoice_number}} " +
			"over {{amount}} {{currency}} has been prepared and will be sent to you shortly.",
	}
}

func (h *InvoiceTracking) Matches(event events.Event) bool {
	n := event.Normalized()

	return n.Module == events.ModuleProjects &&
		n.EntityType == events.EntityProject &&
		n.EventType == events.TypeStatusChanged &&
		statusMatches(event.Payload, "COMPLETED", "DONE", "FINISHED")
}

func (h *InvoiceTracking) Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HandlerResult, error) {
	projectID, ok := payload.String(ec.Event.Payload, "projectId", "project_id", "id")
	if !ok {
		return nil, fmt.Errorf("invoice tracking: %w", ErrMissingEntityID)
	}

	project, err := h.deps.Store.Projects().GetByID(ctx, ec.Event.OrganizationID, projectID)
	if err != nil {
		return nil, err
	}

	invoice, created, err := h.deps.Ops.CreateProjectInvoice(ctx, ec.Event.OrganizationID, project)
	if err != nil {
		return nil, err
	}

	if invoice == nil {
		// No positive amount to bill; record the decision, nothing to send.
		return &models.HandlerResult{
			Details: map[string]any{
				"project_id":      project.ID,
				"invoice_created": false,
				"reason":          "no positive amount",
			},
		}, nil
	}

	recipient, customerName, err := h.resolveBillingContact(ctx, ec, project)
	if err != nil {
		return nil, err
	}

	vars := ec.Variables()
	vars["project_name"] = project.Name
	vars["customer_name"] = customerName
	vars["invoice_number"] = invoice.InvoiceNumber
	vars["amount"] = invoice.Amount
	vars["currency"] = invoice.Currency

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
			"project_id":      project.ID,
			"invoice_id":      invoice.ID,
			"invoice_number":  invoice.InvoiceNumber,
			"invoice_created": created,
			"amount":          invoice.Amount.String(),
			"currency":        invoice.Currency,
		},
	}, nil
}

func (h *InvoiceTracking) resolveBillingContact(ctx context.Context, ec *models.ExecutionContext, project *models.Project) (recipient, name string, err error) {
	if project.CustomerID != "" {
		customer, err := h.deps.Store.Customers().GetByID(ctx, ec.Event.OrganizationID, project.CustomerID)
		if err == nil && customer.Email != "" {
			return customer.Email, customer.Name, nil
		}

		if err != nil && !persistence.IsNotFound(err) {
			return "", "", err
		}
	}

	if ec.ActorEmail != "" {
		return ec.ActorEmail, ec.ActorName, nil
	}

	return "", "", fmt.Errorf("invoice tracking for project %s: %w", project.ID, ErrNoRecipient)
}
