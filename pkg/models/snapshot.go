package models

import "time"

// OperationsSnapshot is the read-only aggregate behind the internal health
// digest. Purely derived; computing one has no side effects.
type OperationsSnapshot struct {
	ActiveProjects  int       `json:"active_projects"`
	AtRiskProjects  int       `json:"at_risk_projects"`
	OverdueInvoices int       `json:"overdue_invoices"`
	ActiveClients   int       `json:"active_clients"`
	OverdueTasks    int       `json:"overdue_tasks"`
	GeneratedAt     time.Time `json:"generated_at"`
}
