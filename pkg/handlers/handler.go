// Package handlers contains the fixed catalog of business-process workflow
// handlers and their registry. A handler pairs a pure match predicate over a
// domain event with an execute routine that performs idempotent side effects
// and sends one notification.
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/notifier"
	"github.com/opensyte/automation/pkg/ops"
	"github.com/opensyte/automation/pkg/persistence"
	"github.com/opensyte/automation/pkg/template"
)

// Defaults are a handler's built-in notification templates, used when the
// tenant has not overridden them.
type Defaults struct {
	EmailSubject string
	EmailBody    string
}

// Handler is one business process. Implementations are stateless singletons
// created once at process start.
type Handler interface {
	Key() string
	Defaults() Defaults

	// Matches is pure and side-effect free. It must be conservative: a
	// missing or unrecognized lifecycle status means no match.
	Matches(event events.Event) bool

	Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HandlerResult, error)
}

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Store    persistence.Persistence
	Ops      *ops.Operations
	Notifier notifier.Notifier
}

// ErrNoRecipient indicates a handler could not resolve a notification
// recipient from the payload or the domain store.
var ErrNoRecipient = errors.New("no resolvable recipient email")

// ErrMissingEntityID indicates the payload carried no usable entity
// identifier.
var ErrMissingEntityID = errors.New("payload has no entity id")

// sendNotification renders the resolved templates and delivers the message.
// A transport failure or an unsuccessful delivery is fatal to the run.
func sendNotification(ctx context.Context, deps Deps, ec *models.ExecutionContext, recipient string, vars map[string]any) (subject string, messageID string, err error) {
	subject = template.Render(ec.Config.EmailSubject, vars)
	body := template.ConvertToPlainTextOrMarkup(template.Render(ec.Config.EmailBody, vars))

	result, err := deps.Notifier.SendEmail(ctx, recipient, subject, body)
	if err != nil {
		return subject, "", fmt.Errorf("notification send failed: %w", err)
	}

	if !result.Success {
		return subject, "", fmt.Errorf("notification rejected: %s", result.Error)
	}

	return subject, result.MessageID, nil
}
