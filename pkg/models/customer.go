package models

import "time"

type CustomerType string

const (
	CustomerTypeLead   CustomerType = "LEAD"
	CustomerTypeClient CustomerType = "CLIENT"
)

type CustomerStatus string

const (
	CustomerStatusProspect CustomerStatus = "PROSPECT"
	CustomerStatusActive   CustomerStatus = "ACTIVE"
	CustomerStatusChurned  CustomerStatus = "CHURNED"
)

// Customer is a CRM contact or company record, scoped to one organization.
type Customer struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	Name           string         `json:"name"`
	Email          string         `json:"email,omitempty"`
	Type           CustomerType   `json:"type"`
	Status         CustomerStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
