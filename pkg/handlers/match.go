package handlers

import (
	"strings"
	"time"

	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/payload"
)

func oneOf(value string, options ...string) bool {
	for _, option := range options {
		if value == option {
			return true
		}
	}

	return false
}

// normalizeStatus folds a payload status value into the canonical
// UPPER_SNAKE comparison form.
func normalizeStatus(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.ReplaceAll(value, "-", "_")

	return value
}

// statusMatches reports whether the payload carries a lifecycle status (under
// any known alias) normalizing to one of the accepted terminal values. No
// status means no match.
func statusMatches(p map[string]any, accepted ...string) bool {
	status, ok := payload.Status(p)
	if !ok {
		return false
	}

	return oneOf(normalizeStatus(status), accepted...)
}

var renewalDateKeys = []string{
	"renewalDate",
	"renewal_date",
	"renewsAt",
	"renews_at",
	"expiresAt",
	"expires_at",
	"endDate",
	"end_date",
}

// renewalDate extracts a parseable renewal-date-like field from the payload.
func renewalDate(p map[string]any) (time.Time, bool) {
	return payload.Date(p, renewalDateKeys...)
}

// healthFlagged reports whether the event is explicitly marked as an
// internal health snapshot: by entity name, by category, or by boolean flag.
// Ordinary business events must never count as health snapshots.
func healthFlagged(event events.Event) bool {
	n := event.Normalized()

	switch n.EntityType {
	case "health", "health_snapshot", "healthcheck", "ops_health":
		return true
	}

	if category, ok := payload.String(event.Payload, "category"); ok {
		switch strings.ToLower(category) {
		case "internal_health", "internal-health", "health":
			return true
		}
	}

	if flagged, ok := payload.Bool(event.Payload, "internalHealth", "internal_health", "healthSnapshot", "health_snapshot"); ok {
		return flagged
	}

	return false
}
