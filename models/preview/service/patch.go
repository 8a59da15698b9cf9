package service

import (
	"fmt"

	"github.com/shopspring/decimal"
	apperrors "github.com/vincentrandon/freelance-project-saas/errors"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// applyUpdate merges a PATCH payload into the preview in place. Absent
// sections stay untouched; task patches address lines by index and never
// change the line count.
func applyUpdate(p *types.Preview, update *types.PreviewUpdate) error {
	if update.CustomerData != nil {
		applyCustomerUpdate(&p.CustomerData, update.CustomerData)
	}
	if update.ProjectData != nil {
		applyProjectUpdate(&p.ProjectData, update.ProjectData)
	}
	for _, patch := range update.Tasks {
		if err := applyTaskPatch(p, patch); err != nil {
			return err
		}
	}
	if update.Financials != nil {
		if err := applyFinancialsUpdate(&p.InvoiceEstimateData, update.Financials); err != nil {
			return err
		}
	}
	if update.CustomerAction != nil {
		if err := applyAction(p, types.MatchEntityCustomer, *update.CustomerAction); err != nil {
			return err
		}
	}
	if update.ProjectAction != nil {
		if err := applyAction(p, types.MatchEntityProject, *update.ProjectAction); err != nil {
			return err
		}
	}
	return nil
}

// applyCustomerUpdate overwrites edited fields. A reviewer-entered value is
// authoritative, so its confidence becomes 100.
func applyCustomerUpdate(fields *types.CustomerFields, update *types.CustomerFieldsUpdate) {
	set := func(dst *types.ExtractedField, v *string) {
		if v != nil {
			*dst = types.ExtractedField{Value: *v, Confidence: 100}
		}
	}
	set(&fields.Name, update.Name)
	set(&fields.Email, update.Email)
	set(&fields.Company, update.Company)
	set(&fields.Phone, update.Phone)
	set(&fields.Address, update.Address)
}

func applyProjectUpdate(fields *types.ProjectFields, update *types.ProjectFieldsUpdate) {
	if update.Name != nil {
		fields.Name = types.ExtractedField{Value: *update.Name, Confidence: 100}
	}
	if update.Description != nil {
		fields.Description = types.ExtractedField{Value: *update.Description, Confidence: 100}
	}
	if update.StartDate != nil {
		fields.StartDate = update.StartDate
	}
	if update.EndDate != nil {
		fields.EndDate = update.EndDate
	}
}

func applyTaskPatch(p *types.Preview, patch types.TaskPatch) error {
	if patch.Index < 0 || patch.Index >= len(p.TasksData) {
		return apperrors.ValidationFailed(
			"Invalid task index",
			fmt.Sprintf("task index %d is out of range (document has %d task lines)", patch.Index, len(p.TasksData)),
		)
	}
	task := &p.TasksData[patch.Index]

	if patch.ApplySuggestion {
		if patch.Index >= len(p.TaskQualities) || p.TaskQualities[patch.Index].AISuggestion == nil {
			return apperrors.ValidationFailed(
				"No suggestion available",
				fmt.Sprintf("task line %d has no stored suggestion to apply", patch.Index),
			)
		}
		s := p.TaskQualities[patch.Index].AISuggestion
		task.Name = s.Name
		task.Description = s.Description
		if !s.Hours.IsZero() {
			task.Hours = s.Hours
		}
	}

	if patch.Name != nil {
		task.Name = *patch.Name
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if err := setDecimal(&task.Hours, patch.Hours, "hours"); err != nil {
		return err
	}
	if err := setDecimal(&task.Rate, patch.Rate, "rate"); err != nil {
		return err
	}
	if err := setDecimal(&task.Amount, patch.Amount, "amount"); err != nil {
		return err
	}
	return nil
}

func applyFinancialsUpdate(f *types.Financials, update *types.FinancialsUpdate) error {
	if err := setDecimal(&f.Subtotal, update.Subtotal, "subtotal"); err != nil {
		return err
	}
	if err := setDecimal(&f.TaxRate, update.TaxRate, "taxRate"); err != nil {
		return err
	}
	if err := setDecimal(&f.Total, update.Total, "total"); err != nil {
		return err
	}
	if update.Currency != nil {
		f.Currency = *update.Currency
	}
	return nil
}

// applyAction switches how an entity resolves. Pointing at an existing
// entity requires a selected candidate to point at.
func applyAction(p *types.Preview, entity types.MatchEntityType, action types.EntityAction) error {
	if !action.IsValid() {
		return apperrors.ValidationFailed("Invalid entity action", fmt.Sprintf("unknown action %q", action))
	}

	var selected *types.MatchCandidate
	if entity == types.MatchEntityCustomer {
		selected = p.SelectedCustomerCandidate()
	} else {
		selected = p.SelectedProjectCandidate()
	}
	if action != types.EntityActionCreateNew && selected == nil {
		return apperrors.ValidationFailed(
			"No match candidate",
			fmt.Sprintf("cannot set %s action to %q without a match candidate", entity, action),
		)
	}

	switch entity {
	case types.MatchEntityCustomer:
		p.CustomerAction = action
		if action == types.EntityActionCreateNew {
			p.MatchedCustomer = nil
		}
	case types.MatchEntityProject:
		p.ProjectAction = action
		if action == types.EntityActionCreateNew {
			p.MatchedProject = nil
		}
	}
	return nil
}

func setDecimal(dst *decimal.Decimal, v *string, field string) error {
	if v == nil {
		return nil
	}
	d, err := decimal.NewFromString(*v)
	if err != nil {
		return apperrors.ValidationFailed(
			"Invalid decimal value",
			fmt.Sprintf("%s: %q is not a valid decimal", field, *v),
		)
	}
	*dst = d
	return nil
}

// extractionDiff lists every field whose final value differs from the
// original extraction, keyed by a dotted path. Nil when the preview carries
// no snapshot or nothing changed.
func extractionDiff(p *types.Preview) map[string]types.FieldChange {
	snap := p.ExtractionSnapshot
	if snap == nil {
		return nil
	}

	diff := make(map[string]types.FieldChange)
	record := func(path, extracted, final string) {
		if extracted != final {
			diff[path] = types.FieldChange{Extracted: extracted, Final: final}
		}
	}

	record("customer.name", snap.CustomerFields.Name.Value, p.CustomerData.Name.Value)
	record("customer.email", snap.CustomerFields.Email.Value, p.CustomerData.Email.Value)
	record("customer.company", snap.CustomerFields.Company.Value, p.CustomerData.Company.Value)
	record("customer.phone", snap.CustomerFields.Phone.Value, p.CustomerData.Phone.Value)
	record("customer.address", snap.CustomerFields.Address.Value, p.CustomerData.Address.Value)
	record("project.name", snap.ProjectFields.Name.Value, p.ProjectData.Name.Value)
	record("project.description", snap.ProjectFields.Description.Value, p.ProjectData.Description.Value)

	for i, task := range p.TasksData {
		if i >= len(snap.Tasks) {
			break
		}
		orig := snap.Tasks[i]
		prefix := fmt.Sprintf("tasks[%d].", i)
		record(prefix+"name", orig.Name, task.Name)
		record(prefix+"description", orig.Description, task.Description)
		recordDecimal(diff, prefix+"hours", orig.Hours, task.Hours)
		recordDecimal(diff, prefix+"rate", orig.Rate, task.Rate)
		recordDecimal(diff, prefix+"amount", orig.Amount, task.Amount)
	}

	recordDecimal(diff, "financials.subtotal", snap.Financials.Subtotal, p.InvoiceEstimateData.Subtotal)
	recordDecimal(diff, "financials.taxRate", snap.Financials.TaxRate, p.InvoiceEstimateData.TaxRate)
	recordDecimal(diff, "financials.total", snap.Financials.Total, p.InvoiceEstimateData.Total)
	record("financials.currency", snap.Financials.Currency, p.InvoiceEstimateData.Currency)

	if len(diff) == 0 {
		return nil
	}
	return diff
}

func recordDecimal(diff map[string]types.FieldChange, path string, extracted, final decimal.Decimal) {
	if !extracted.Equal(final) {
		diff[path] = types.FieldChange{Extracted: extracted.String(), Final: final.String()}
	}
}
