// Package validation computes the warnings and conflicts of a preview.
// Warnings inform the reviewer and never block; conflicts always block
// approval and have no override path.
package validation

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vincentrandon/freelance-project-saas/config"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// Validate recomputes the preview's warnings and conflicts from its current
// (possibly edited) data. It is called at assembly and after every edit.
func Validate(p *types.Preview, cfg config.ReconciliationConfig) (warnings []string, conflicts []string) {
	warnings = []string{}
	conflicts = []string{}

	conflicts = append(conflicts, financialConflicts(p, cfg)...)
	conflicts = append(conflicts, requiredFieldConflicts(p)...)
	warnings = append(warnings, confidenceWarnings(p, cfg)...)
	warnings = append(warnings, matchWarnings(p, cfg)...)
	warnings = append(warnings, lineSumWarnings(p, cfg)...)

	return warnings, conflicts
}

// financialConflicts checks the extracted total against subtotal plus tax.
// A deviation beyond the tolerance is blocking: approving it would create an
// invoice whose numbers do not add up.
func financialConflicts(p *types.Preview, cfg config.ReconciliationConfig) []string {
	f := p.InvoiceEstimateData
	if f.Subtotal.IsZero() && f.Total.IsZero() {
		return nil
	}

	expected := f.Subtotal.Mul(decimal.NewFromInt(1).Add(f.TaxRate))
	if withinTolerance(f.Total, expected, cfg.AmountTolerancePercent) {
		return nil
	}
	return []string{fmt.Sprintf(
		"Document total %s is inconsistent with subtotal plus tax (expected %s).",
		f.Total.String(), expected.String(),
	)}
}

func requiredFieldConflicts(p *types.Preview) []string {
	var conflicts []string
	if p.CustomerData.Name.Value == "" && p.MatchedCustomer == nil {
		conflicts = append(conflicts, "Customer name is missing.")
	}
	if len(p.TasksData) == 0 {
		conflicts = append(conflicts, "Document contains no task lines.")
	}
	if p.InvoiceEstimateData.Currency == "" {
		conflicts = append(conflicts, "Currency is missing.")
	}
	return conflicts
}

// confidenceWarnings flags customer fields the parser was unsure about.
func confidenceWarnings(p *types.Preview, cfg config.ReconciliationConfig) []string {
	var warnings []string
	check := func(field string, f types.ExtractedField) {
		if f.Value != "" && f.Confidence < cfg.LowFieldConfidence {
			warnings = append(warnings, fmt.Sprintf("Low extraction confidence for customer %s.", field))
		}
	}
	check("name", p.CustomerData.Name)
	check("email", p.CustomerData.Email)
	check("company", p.CustomerData.Company)
	check("phone", p.CustomerData.Phone)
	check("address", p.CustomerData.Address)
	return warnings
}

// matchWarnings surfaces ambiguous entity matches. Ambiguity never blocks;
// it lowers trust and is left to the reviewer.
func matchWarnings(p *types.Preview, cfg config.ReconciliationConfig) []string {
	var warnings []string
	if ambiguous(p.CustomerCandidates, cfg.AmbiguityMargin) {
		warnings = append(warnings, "Multiple existing customers match this document almost equally well.")
	}
	if ambiguous(p.ProjectCandidates, cfg.AmbiguityMargin) {
		warnings = append(warnings, "Multiple existing projects match this document almost equally well.")
	}
	return warnings
}

func ambiguous(candidates []types.MatchCandidate, margin int) bool {
	return len(candidates) >= 2 &&
		candidates[0].SimilarityScore-candidates[1].SimilarityScore < margin
}

// lineSumWarnings compares the task amounts against the stated subtotal.
// Non-blocking: partial documents legitimately list fewer lines than the
// subtotal covers.
func lineSumWarnings(p *types.Preview, cfg config.ReconciliationConfig) []string {
	if len(p.TasksData) == 0 || p.InvoiceEstimateData.Subtotal.IsZero() {
		return nil
	}

	sum := decimal.Zero
	for _, task := range p.TasksData {
		sum = sum.Add(task.Amount)
	}
	if withinTolerance(sum, p.InvoiceEstimateData.Subtotal, cfg.AmountTolerancePercent) {
		return nil
	}
	return []string{fmt.Sprintf(
		"Task amounts sum to %s but the document subtotal is %s.",
		sum.String(), p.InvoiceEstimateData.Subtotal.String(),
	)}
}

func withinTolerance(actual, expected decimal.Decimal, tolerancePercent float64) bool {
	diff := actual.Sub(expected).Abs()
	if expected.IsZero() {
		return diff.IsZero()
	}
	tolerance := expected.Abs().Mul(decimal.NewFromFloat(tolerancePercent / 100.0))
	return diff.LessThanOrEqual(tolerance)
}
