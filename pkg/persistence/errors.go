// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrCustomerNotFound indicates the customer does not exist in the organization.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrProjectNotFound indicates the project does not exist in the organization.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvoiceNotFound indicates the invoice does not exist in the organization.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrOrganizationNotFound indicates no organization exists for the given identifier.
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrUserNotFound indicates no user exists for the given identifier.
	ErrUserNotFound = errors.New("user not found")

	// ErrRunNotFound indicates a workflow run was not found by the given identifier.
	ErrRunNotFound = errors.New("workflow run not found")
)

// StoreError wraps storage errors with operation context.
type StoreError struct {
	Op             string // Operation being performed (e.g., "GetByID", "Upsert")
	OrganizationID string // Tenant scope if applicable
	EntityID       string // Entity identifier if applicable
	Err            error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s failed for %s (org %s): %v", e.Op, e.EntityID, e.OrganizationID, e.Err)
	}

	return fmt.Sprintf("%s failed (org %s): %v", e.Op, e.OrganizationID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, organizationID, entityID string, err error) *StoreError {
	return &StoreError{
		Op:             op,
		OrganizationID: organizationID,
		EntityID:       entityID,
		Err:            err,
	}
}

// IsNotFound checks if an error indicates any entity was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrOrganizationNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrRunNotFound)
}
