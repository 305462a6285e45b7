package handlers

import (
	"context"
	"fmt"

	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/payload"
	"github.com/opensyte/automation/pkg/persistence"
)

const ProjectLifecycleKey = "project-lifecycle"

// ProjectLifecycle reacts to a project being created or completed: it
// ensures the owner is assigned as a project resource and notifies the
// customer contact.
type ProjectLifecycle struct {
	deps Deps
}

func NewProjectLifecycle(deps Deps) *ProjectLifecycle {
	return &ProjectLifecycle{deps: deps}
}

func (h *ProjectLifecycle) Key() string { return ProjectLifecycleKey }

func (h *ProjectLifecycle) Defaults() Defaults {
	return Defaults{
		EmailSubject: "Project {{project_name}}: {{phase}}",
		EmailBody: "Hi {{customer_name}},\n\n" +
			"Your project \"{{project_name}}\" with {{organization_name}} is now {{phase}}.\n\n" +
			"Reach out any time if you have questions.",
	}
}

func (h *ProjectLifecycle) Matches(event events.Event) bool {
	n := event.Normalized()

	if n.Module != events.ModuleProjects || n.EntityType != events.EntityProject {
		return false
	}

	if n.EventType == events.TypeCreated {
		return true
	}

	return n.EventType == events.TypeStatusChanged &&
		statusMatches(event.Payload, "COMPLETED", "DONE", "FINISHED")
}

func (h *ProjectLifecycle) Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HandlerResult, error) {
	projectID, ok := payload.String(ec.Event.Payload, "projectId", "project_id", "id")
	if !ok {
		return nil, fmt.Errorf("project lifecycle: %w", ErrMissingEntityID)
	}

	project, err := h.deps.Store.Projects().GetByID(ctx, ec.Event.OrganizationID, projectID)
	if err != nil {
		return nil, err
	}

	phase := "completed"
	if ec.Event.Normalized().EventType == events.TypeCreated {
		phase = "underway"
	}

	ownerID := project.OwnerID
	if ownerID == "" {
		ownerID = ec.Event.UserID
	}

	if ownerID != "" {
		if err := h.deps.Ops.EnsureProjectOwnerResource(ctx, ec.Event.OrganizationID, project.ID, ownerID); err != nil {
			return nil, err
		}
	}

	recipient, customerName, err := h.resolveContact(ctx, ec, project)
	if err != nil {
		return nil, err
	}

	vars := ec.Variables()
	vars["project_name"] = project.Name
	vars["customer_name"] = customerName
	vars["phase"] = phase

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
			"project_id": project.ID,
			"phase":      phase,
		},
	}, nil
}

// resolveContact prefers the linked customer's address, then a payload
// email, then the triggering actor.
func (h *ProjectLifecycle) resolveContact(ctx context.Context, ec *models.ExecutionContext, project *models.Project) (recipient, name string, err error) {
	if project.CustomerID != "" {
		customer, err := h.deps.Store.Customers().GetByID(ctx, ec.Event.OrganizationID, project.CustomerID)
		if err == nil && customer.Email != "" {
			return customer.Email, customer.Name, nil
		}

		if err != nil && !persistence.IsNotFound(err) {
			return "", "", err
		}
	}

	if email, ok := payload.FirstEmail(ec.Event.Payload, "email", "contactEmail", "contact_email"); ok {
		return email, email, nil
	}

	if ec.ActorEmail != "" {
		return ec.ActorEmail, ec.ActorName, nil
	}

	return "", "", fmt.Errorf("project lifecycle for project %s: %w", project.ID, ErrNoRecipient)
}
