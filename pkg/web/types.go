// Package web provides the HTTP surface of the automation engine: event
// intake, run queries and per-tenant workflow configuration.
package web

import (
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/opensyte/automation/pkg/events"
)

// EventRequest represents the request body for submitting a domain event.
type EventRequest struct {
	OrganizationID string         `json:"organization_id" validate:"required"`
	Module         string         `json:"module"          validate:"required"`
	EntityType     string         `json:"entity_type"     validate:"required"`
	EventType      string         `json:"event_type"      validate:"required"`
	Payload        map[string]any `json:"payload,omitempty"`
	UserID         string         `json:"user_id,omitempty"`
	TriggeredAt    *time.Time     `json:"triggered_at,omitempty"`
}

func (r EventRequest) ToEvent() events.Event {
	event := events.Event{
		OrganizationID: r.OrganizationID,
		Module:         r.Module,
		EntityType:     r.EntityType,
		EventType:      r.EventType,
		Payload:        r.Payload,
		UserID:         r.UserID,
	}

	if r.TriggeredAt != nil {
		event.TriggeredAt = *r.TriggeredAt
	}

	return event
}

// UpsertConfigRequest represents the request body for enabling, disabling or
// overriding one workflow's templates for a tenant.
type UpsertConfigRequest struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	Enabled        bool   `json:"enabled"`
	EmailSubject   string `json:"email_subject,omitempty"`
	EmailBody      string `json:"email_body,omitempty"`
	UpdatedBy      string `json:"updated_by,omitempty"`
}

var eventSchema = map[string]any{
	"type":     "object",
	"required": []any{"organization_id", "module", "entity_type", "event_type"},
	"properties": map[string]any{
		"organization_id": map[string]any{"type": "string", "minLength": 1},
		"module":          map[string]any{"type": "string", "minLength": 1},
		"entity_type":     map[string]any{"type": "string", "minLength": 1},
		"event_type":      map[string]any{"type": "string", "minLength": 1},
		"payload":         map[string]any{"type": "object"},
		"user_id":         map[string]any{"type": "string"},
	},
}

// validateEventSchema checks the raw request body against the event JSON
// schema, catching shape errors the struct bind silently coerces.
func validateEventSchema(body []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(eventSchema)
	dataLoader := gojsonschema.NewBytesLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
