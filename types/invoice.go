package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceLineItem is one billed line on an invoice or estimate, derived 1:1
// from the approved preview's task lines.
type InvoiceLineItem struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoiceId"`
	Description string          `json:"description"`
	Hours       decimal.Decimal `json:"hours"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
	Position    int             `json:"position"`
}

// Invoice is a durable invoice or estimate (distinguished by DocumentType)
// linked to a customer and project. AIGenerated marks documents materialized
// from an approved preview for downstream feedback attribution.
type Invoice struct {
	ID           string            `json:"id"`
	OwnerID      string            `json:"ownerId"`
	CustomerID   string            `json:"customerId"`
	ProjectID    string            `json:"projectId"`
	DocumentType DocumentType      `json:"documentType"`
	Subtotal     decimal.Decimal   `json:"subtotal"`
	TaxRate      decimal.Decimal   `json:"taxRate"`
	Total        decimal.Decimal   `json:"total"`
	Currency     string            `json:"currency"`
	AIGenerated  bool              `json:"aiGenerated"`
	LineItems    []InvoiceLineItem `json:"lineItems"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}
