package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/persistence"
)

// CustomerRepository handles customer database operations.
type CustomerRepository struct {
	db *sql.DB
}

func (r *CustomerRepository) GetByID(ctx context.Context, organizationID, id string) (*models.Customer, error) {
	query := `
		SELECT
			id
		  , organization_id
		  , name
		  , COALESCE(email, '')
		  , type
		  , status
		  , created_at
		  , updated_at
		FROM customers
		WHERE id = $1 AND organization_id = $2
	`

	customer := &models.Customer{}

	err := r.db.QueryRowContext(ctx, query, id, organizationID).Scan(
		&customer.ID,
		&customer.OrganizationID,
		&customer.Name,
		&customer.Email,
		&customer.Type,
		&customer.Status,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", organizationID, id, persistence.ErrCustomerNotFound)
		}

		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}

	return customer, nil
}

func (r *CustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	customer.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE customers
		SET name = $3
		  , email = $4
		  , type = $5
		  , status = $6
		  , updated_at = $7
		WHERE id = $1 AND organization_id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.OrganizationID,
		customer.Name,
		customer.Email,
		customer.Type,
		customer.Status,
		customer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Update", customer.OrganizationID, customer.ID, persistence.ErrCustomerNotFound)
	}

	return nil
}

func (r *CustomerRepository) CountActiveClients(ctx context.Context, organizationID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM customers
		WHERE organization_id = $1 AND type = $2 AND status = $3
	`

	var count int

	err := r.db.QueryRowContext(ctx, query,
		organizationID, models.CustomerTypeClient, models.CustomerStatusActive,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active clients: %w", err)
	}

	return count, nil
}
