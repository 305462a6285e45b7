package engine

import (
	"github.com/opensyte/automation/pkg/handlers"
	"github.com/opensyte/automation/pkg/models"
)

// ResolveConfig merges a tenant's stored config over a handler's defaults.
// A missing stored config resolves to disabled: tenants opt in to every
// workflow explicitly.
func ResolveConfig(defaults handlers.Defaults, stored *models.WorkflowConfig) models.ResolvedConfig {
	resolved := models.ResolvedConfig{
		Enabled:      false,
		EmailSubject: defaults.EmailSubject,
		EmailBody:    defaults.EmailBody,
	}

	if stored == nil {
		return resolved
	}

	resolved.Enabled = stored.Enabled
	resolved.TemplateVersion = stored.TemplateVersion

	if stored.EmailSubject != "" {
		resolved.EmailSubject = stored.EmailSubject
	}

	if stored.EmailBody != "" {
		resolved.EmailBody = stored.EmailBody
	}

	return resolved
}
