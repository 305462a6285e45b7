package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/persistence"
)

// OrganizationRepository handles organization database operations.
type OrganizationRepository struct {
	db *sql.DB
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	query := `
		SELECT
			id
		  , name
		  , COALESCE(owner_email, '')
		  , created_at
		FROM organizations
		WHERE id = $1
	`

	org := &models.Organization{}

	err := r.db.QueryRowContext(ctx, query, id).Scan(&org.ID, &org.Name, &org.OwnerEmail, &org.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", id, id, persistence.ErrOrganizationNotFound)
		}

		return nil, fmt.Errorf("failed to scan organization: %w", err)
	}

	return org, nil
}

func (r *OrganizationRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM organizations ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}

	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)

	for rows.Next() {
		var id string

		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan organization id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}

	return ids, nil
}

// UserRepository handles user database operations.
type UserRepository struct {
	db *sql.DB
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT
			id
		  , name
		  , COALESCE(email, '')
		FROM users
		WHERE id = $1
	`

	user := &models.User{}

	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name, &user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "", id, persistence.ErrUserNotFound)
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}
