package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opensyte/automation/pkg/models"
)

// InvoiceRepository handles invoice database operations.
type InvoiceRepository struct {
	db *sql.DB
}

const invoiceColumns = `
			id
		  , organization_id
		  , COALESCE(customer_id::text, '')
		  , COALESCE(project_id::text, '')
		  , invoice_number
		  , status
		  , amount
		  , currency
		  , COALESCE(notes, '')
		  , issued_at
		  , due_at
		  , created_at
`

func (r *InvoiceRepository) scanInvoice(row interface{ Scan(...any) error }) (*models.Invoice, error) {
	invoice := &models.Invoice{}

	var amount string

	err := row.Scan(
		&invoice.ID,
		&invoice.OrganizationID,
		&invoice.CustomerID,
		&invoice.ProjectID,
		&invoice.InvoiceNumber,
		&invoice.Status,
		&amount,
		&invoice.Currency,
		&invoice.Notes,
		&invoice.IssuedAt,
		&invoice.DueAt,
		&invoice.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	invoice.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice amount: %w", err)
	}

	return invoice, nil
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate invoice ID: %w", err)
		}

		invoice.ID = id.String()
	}

	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO invoices (
			id, organization_id, customer_id, project_id, invoice_number,
			status, amount, currency, notes, issued_at, due_at, created_at
		) VALUES ($1, $2, NULLIF($3, '')::uuid, NULLIF($4, '')::uuid, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		invoice.ID,
		invoice.OrganizationID,
		invoice.CustomerID,
		invoice.ProjectID,
		invoice.InvoiceNumber,
		invoice.Status,
		invoice.Amount.String(),
		invoice.Currency,
		invoice.Notes,
		invoice.IssuedAt,
		invoice.DueAt,
		invoice.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	return nil
}

func (r *InvoiceRepository) FindByProjectRef(ctx context.Context, organizationID, projectID string) (*models.Invoice, error) {
	query := `
		SELECT` + invoiceColumns + `
		FROM invoices
		WHERE organization_id = $1
		  AND (project_id = $2::uuid OR notes LIKE '%' || $3 || '%')
		ORDER BY created_at DESC
		LIMIT 1
	`

	marker := "[project:" + projectID + "]"

	invoice, err := r.scanInvoice(r.db.QueryRowContext(ctx, query, organizationID, projectID, marker))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}

	return invoice, nil
}

func (r *InvoiceRepository) FindByMarker(ctx context.Context, organizationID, marker string) (*models.Invoice, error) {
	query := `
		SELECT` + invoiceColumns + `
		FROM invoices
		WHERE organization_id = $1 AND notes LIKE '%' || $2 || '%'
		ORDER BY created_at DESC
		LIMIT 1
	`

	invoice, err := r.scanInvoice(r.db.QueryRowContext(ctx, query, organizationID, marker))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}

	return invoice, nil
}

func (r *InvoiceRepository) CountForMonth(ctx context.Context, organizationID string, year int, month time.Month) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM invoices
		WHERE organization_id = $1
		  AND EXTRACT(YEAR FROM issued_at) = $2
		  AND EXTRACT(MONTH FROM issued_at) = $3
	`

	var count int

	err := r.db.QueryRowContext(ctx, query, organizationID, year, int(month)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count invoices for month: %w", err)
	}

	return count, nil
}

func (r *InvoiceRepository) CountOverdue(ctx context.Context, organizationID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM invoices
		WHERE organization_id = $1
		  AND status != $2
		  AND (status = $3 OR (due_at IS NOT NULL AND due_at < $4))
	`

	var count int

	err := r.db.QueryRowContext(ctx, query,
		organizationID, models.InvoiceStatusPaid, models.InvoiceStatusOverdue, now,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue invoices: %w", err)
	}

	return count, nil
}
