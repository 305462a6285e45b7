// Package events defines the domain event value consumed by the automation engine.
package events

import (
	"strings"
	"time"
)

// Kafka topic for inbound domain events.
const Topic = "opensyte.domain.events"

const EventMetadataKey = "key"

// Known module names, normalized lowercase.
const (
	ModuleCRM        = "crm"
	ModuleProjects   = "projects"
	ModuleFinance    = "finance"
	ModuleHR         = "hr"
	ModuleOperations = "operations"
	ModuleSystem     = "system"
	ModuleAnalytics  = "analytics"
)

// Known entity types, normalized lowercase.
const (
	EntityDeal         = "deal"
	EntityContact      = "contact"
	EntityCustomer     = "customer"
	EntityProject      = "project"
	EntityInvoice      = "invoice"
	EntityContract     = "contract"
	EntitySubscription = "subscription"
)

// Known event types, normalized lowercase.
const (
	TypeCreated       = "created"
	TypeUpdated       = "updated"
	TypeStatusChanged = "status_changed"
	TypeConverted     = "converted"
)

// Event is an immutable record of something that happened in the business
// domain. It carries an untyped payload whose shape varies per event source;
// typed access goes through the payload package.
type Event struct {
	OrganizationID string         `json:"organization_id"`
	Module         string         `json:"module"`
	EntityType     string         `json:"entity_type"`
	EventType      string         `json:"event_type"`
	Payload        map[string]any `json:"payload,omitempty"`
	UserID         string         `json:"user_id,omitempty"`
	TriggeredAt    time.Time      `json:"triggered_at,omitempty"`
}

// Normalized returns a copy with module, entity type and event type folded to
// lowercase so matching predicates can compare case-insensitively.
func (e Event) Normalized() Event {
	e.Module = strings.ToLower(strings.TrimSpace(e.Module))
	e.EntityType = strings.ToLower(strings.TrimSpace(e.EntityType))
	e.EventType = strings.ToLower(strings.TrimSpace(e.EventType))

	return e
}

// Is reports whether the event's coordinates match the given module, entity
// type and event type after normalization.
func (e Event) Is(module, entityType, eventType string) bool {
	n := e.Normalized()

	return n.Module == module && n.EntityType == entityType && n.EventType == eventType
}
