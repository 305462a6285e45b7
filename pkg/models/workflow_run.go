package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// WorkflowRun is the persisted record of one handler execution attempt for
// one event. A run is created in RUNNING the instant a matched and enabled
// handler begins executing, transitions exactly once to COMPLETED or FAILED,
// and is never deleted.
type WorkflowRun struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	WorkflowKey    string         `json:"workflow_key"`
	Status         RunStatus      `json:"status"`
	TriggerModule  string         `json:"trigger_module"`
	TriggerEntity  string         `json:"trigger_entity"`
	TriggerEvent   string         `json:"trigger_event"`
	TriggeredAt    time.Time      `json:"triggered_at"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	DurationMS     *int64         `json:"duration_ms,omitempty"`
	EmailRecipient string         `json:"email_recipient,omitempty"`
	EmailSubject   string         `json:"email_subject,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
	Result         map[string]any `json:"result,omitempty"`
	Error          string         `json:"error,omitempty"`
}
