package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "DRAFT"
	InvoiceStatusSent    InvoiceStatus = "SENT"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

type Invoice struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	CustomerID     string          `json:"customer_id,omitempty"`
	ProjectID      string          `json:"project_id,omitempty"`
	InvoiceNumber  string          `json:"invoice_number"`
	Status         InvoiceStatus   `json:"status"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Notes          string          `json:"notes,omitempty"`
	IssuedAt       time.Time       `json:"issued_at"`
	DueAt          *time.Time      `json:"due_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
