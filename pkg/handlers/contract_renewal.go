package handlers

import (
	"context"
	"fmt"

	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/payload"
)

const ContractRenewalKey = "contract-renewal"

// ContractRenewal prepares a draft invoice ahead of a contract or
// subscription renewal date and reminds the account owner about it.
type ContractRenewal struct {
	deps Deps
}

func NewContractRenewal(deps Deps) *ContractRenewal {
	return &ContractRenewal{deps: deps}
}

func (h *ContractRenewal) Key() string { return ContractRenewalKey }

func (h *ContractRenewal) Defaults() Defaults {
	return Defaults{
		EmailSubject: "Renewal coming up on {{renewal_date}}",
		EmailBody: "Hi {{actor_name}},\n\n" +
			"A renewal is due on {{renewal_date}} for {{amount}} {{currency}}. " +
			"A draft invoice has been prepared so it is ready to send.",
	}
}

func (h *ContractRenewal) Matches(event events.Event) bool {
	n := event.Normalized()

	if !oneOf(n.Module, events.ModuleCRM, events.ModuleFinance, events.ModuleProjects) {
		return false
	}

	if !oneOf(n.EntityType, events.EntityCustomer, events.EntityContract, events.EntitySubscription, events.EntityInvoice) {
		return false
	}

	if !oneOf(n.EventType, events.TypeCreated, events.TypeUpdated, events.TypeStatusChanged) {
		return false
	}

	_, ok := renewalDate(event.Payload)

	return ok
}

func (h *ContractRenewal) Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HandlerResult, error) {
	sourceID, ok := payload.String(ec.Event.Payload, "contractId", "contract_id", "subscriptionId", "subscription_id", "id")
	if !ok {
		return nil, fmt.Errorf("contract renewal: %w", ErrMissingEntityID)
	}

	due, ok := renewalDate(ec.Event.Payload)
	if !ok {
		return nil, fmt.Errorf("contract renewal for %s: renewal date missing from payload", sourceID)
	}

	amount, _ := payload.Decimal(ec.Event.Payload, "amount", "renewalAmount", "renewal_amount", "value", "total")
	currency, ok := payload.String(ec.Event.Payload, "currency")
	if !ok {
		currency = "USD"
	}

	customerID, _ := payload.String(ec.Event.Payload, "customerId", "customer_id")

	marker := fmt.Sprintf("[renewal:%s]", sourceID)

	invoice, created, err := h.deps.Ops.EnsureRenewalInvoiceDraft(ctx, ec.Event.OrganizationID, customerID, amount, currency, due, marker)
	if err != nil {
		return nil, err
	}

	if invoice == nil {
		// No positive amount to draft; record the decision, nothing to send.
		return &models.HandlerResult{
			Details: map[string]any{
				"source_id":       sourceID,
				"renewal_date":    due.Format("2006-01-02"),
				"invoice_created": false,
				"reason":          "no positive amount",
			},
		}, nil
	}

	recipient, _ := payload.FirstEmail(ec.Event.Payload, "ownerEmail", "owner_email", "email")
	if recipient == "" {
		recipient = ec.ActorEmail
	}

	if recipient == "" {
		return nil, fmt.Errorf("contract renewal for %s: %w", sourceID, ErrNoRecipient)
	}

	vars := ec.Variables()
	vars["renewal_date"] = due.Format("2006-01-02")
	vars["amount"] = amount
	vars["currency"] = currency
	vars["invoice_number"] = invoice.InvoiceNumber

	details := map[string]any{
		"source_id":       sourceID,
		"renewal_date":    due.Format("2006-01-02"),
		"invoice_created": created,
		"invoice_id":      invoice.ID,
		"invoice_number":  invoice.InvoiceNumber,
	}

	subject, messageID, err := sendNotification(ctx, h.deps, ec, recipient, vars)
	if err != nil {
		return nil, err
	}

	return &models.HandlerResult{
		Recipient: recipient,
		Subject:   subject,
		Sent:      true,
		MessageID: messageID,
		Details:   details,
	}, nil
}
