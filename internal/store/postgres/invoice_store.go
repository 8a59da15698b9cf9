package postgres

import (
	"context"

	"github.com/vincentrandon/freelance-project-saas/internal/store"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// InvoiceStore implements store.InvoiceStore using PostgreSQL.
type InvoiceStore struct {
	db DB
}

var _ store.InvoiceStore = (*InvoiceStore)(nil)

// NewInvoiceStore creates a new InvoiceStore instance.
func NewInvoiceStore(db DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

// CreateInvoice inserts an invoice or estimate together with its line items.
// Callers are expected to run this inside a transaction; a line-item failure
// must take the invoice header down with it.
func (s *InvoiceStore) CreateInvoice(ctx context.Context, invoice *types.Invoice) (string, error) {
	query := `
		INSERT INTO invoices (owner_id, customer_id, project_id, document_type, subtotal, tax_rate, total, currency, ai_generated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	var id string
	err := s.db.QueryRow(ctx, query,
		invoice.OwnerID,
		invoice.CustomerID,
		invoice.ProjectID,
		invoice.DocumentType,
		invoice.Subtotal,
		invoice.TaxRate,
		invoice.Total,
		invoice.Currency,
		invoice.AIGenerated,
	).Scan(&id)
	if err != nil {
		return "", err
	}

	itemQuery := `
		INSERT INTO invoice_line_items (invoice_id, description, hours, rate, amount, position)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, item := range invoice.LineItems {
		if _, err := s.db.Exec(ctx, itemQuery,
			id,
			item.Description,
			item.Hours,
			item.Rate,
			item.Amount,
			item.Position,
		); err != nil {
			return "", err
		}
	}

	return id, nil
}
