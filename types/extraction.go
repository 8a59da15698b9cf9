package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType distinguishes the two billable document kinds this service
// reconciles.
type DocumentType string

const (
	DocumentTypeInvoice  DocumentType = "invoice"
	DocumentTypeEstimate DocumentType = "estimate"
)

// IsValid checks if the document type is recognized.
func (dt DocumentType) IsValid() bool {
	switch dt {
	case DocumentTypeInvoice, DocumentTypeEstimate:
		return true
	default:
		return false
	}
}

// ExtractedField is a single value read by the external parser together with
// its extraction confidence (0-100).
type ExtractedField struct {
	Value      string `json:"value"`
	Confidence int    `json:"confidence"`
}

// CustomerFields holds the customer identity fields as extracted from the
// source document.
type CustomerFields struct {
	Name    ExtractedField `json:"name"`
	Email   ExtractedField `json:"email"`
	Company ExtractedField `json:"company"`
	Phone   ExtractedField `json:"phone"`
	Address ExtractedField `json:"address"`
}

// ProjectFields holds the project fields as extracted from the source document.
type ProjectFields struct {
	Name        ExtractedField `json:"name"`
	Description ExtractedField `json:"description"`
	StartDate   *time.Time     `json:"startDate,omitempty"`
	EndDate     *time.Time     `json:"endDate,omitempty"`
}

// HasData reports whether the document carried a project section at all.
func (f ProjectFields) HasData() bool {
	return f.Name.Value != "" || f.Description.Value != ""
}

// ExtractedTask is one task line item from the source document. Hours, Rate
// and Amount may be zero when the parser could not read them.
type ExtractedTask struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Hours       decimal.Decimal `json:"hours"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// Financials holds the document totals as extracted.
type Financials struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	TaxRate  decimal.Decimal `json:"taxRate"` // fraction, e.g. 0.20 for 20%
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"` // ISO 4217
}

// RawExtraction is the immutable output of the external AI parser for one
// document. It is created once per document and never mutated; all editing
// happens on the Preview copy.
type RawExtraction struct {
	DocumentID     string          `json:"documentId"`
	DocumentType   DocumentType    `json:"documentType"`
	CustomerFields CustomerFields  `json:"customerFields"`
	ProjectFields  ProjectFields   `json:"projectFields"`
	Tasks          []ExtractedTask `json:"tasks"`
	Financials     Financials      `json:"financials"`
	ExtractedAt    time.Time       `json:"extractedAt"`
}

// CustomerFieldAverageConfidence returns the mean extraction confidence over
// the customer fields that carry a value, rounded half-up. Empty fields do
// not drag the average down; a document with only a name should score on the
// name alone.
func (r *RawExtraction) CustomerFieldAverageConfidence() int {
	fields := []ExtractedField{
		r.CustomerFields.Name,
		r.CustomerFields.Email,
		r.CustomerFields.Company,
		r.CustomerFields.Phone,
		r.CustomerFields.Address,
	}
	sum, n := 0, 0
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		sum += f.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return (sum + n/2) / n
}

// ProjectFieldAverageConfidence returns the mean extraction confidence over
// the non-empty project fields, rounded half-up.
func (r *RawExtraction) ProjectFieldAverageConfidence() int {
	fields := []ExtractedField{
		r.ProjectFields.Name,
		r.ProjectFields.Description,
	}
	sum, n := 0, 0
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		sum += f.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return (sum + n/2) / n
}
