package models

import "time"

// WorkflowConfig holds one organization's overrides for one workflow key.
// Absence of a stored config is equivalent to enabled=false with the
// handler's default templates; a handler never executes unless a tenant has
// explicitly enabled it.
type WorkflowConfig struct {
	OrganizationID  string    `json:"organization_id"`
	WorkflowKey     string    `json:"workflow_key"`
	Enabled         bool      `json:"enabled"`
	EmailSubject    string    `json:"email_subject,omitempty"`
	EmailBody       string    `json:"email_body,omitempty"`
	TemplateVersion int       `json:"template_version"`
	UpdatedBy       string    `json:"updated_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ResolvedConfig is the merge of a stored WorkflowConfig over a handler's
// defaults, as seen by one execution.
type ResolvedConfig struct {
	Enabled         bool   `json:"enabled"`
	EmailSubject    string `json:"email_subject"`
	EmailBody       string `json:"email_body"`
	TemplateVersion int    `json:"template_version"`
}
