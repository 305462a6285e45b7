package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProjectStatus string

const (
	ProjectStatusPlanned    ProjectStatus = "PLANNED"
	ProjectStatusInProgress ProjectStatus = "IN_PROGRESS"
	ProjectStatusCompleted  ProjectStatus = "COMPLETED"
	ProjectStatusOnHold     ProjectStatus = "ON_HOLD"
)

type Project struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	CustomerID     string           `json:"customer_id,omitempty"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Status         ProjectStatus    `json:"status"`
	Budget         *decimal.Decimal `json:"budget,omitempty"`
	Currency       string           `json:"currency,omitempty"`
	OwnerID        string           `json:"owner_id,omitempty"`
	StartAt        *time.Time       `json:"start_at,omitempty"`
	EndAt          *time.Time       `json:"end_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type TaskStatus string

const (
	TaskStatusOpen TaskStatus = "OPEN"
	TaskStatusDone TaskStatus = "DONE"
)

type Task struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	ProjectID      string     `json:"project_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         TaskStatus `json:"status"`
	AssigneeID     string     `json:"assignee_id,omitempty"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ProjectResource links a user to a project. The (project, user) pair is the
// natural key; assignment is an upsert.
type ProjectResource struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	ProjectID      string    `json:"project_id"`
	UserID         string    `json:"user_id"`
	Role           string    `json:"role,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
