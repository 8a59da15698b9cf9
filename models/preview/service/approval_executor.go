package service

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/vincentrandon/freelance-project-saas/errors"
	istore "github.com/vincentrandon/freelance-project-saas/internal/store"
	"github.com/vincentrandon/freelance-project-saas/logger"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// ApprovalExecutor materializes an approved preview into durable entities.
// Everything happens in one database transaction: customer, project, tasks,
// invoice with line items, the preview's terminal status and the feedback
// audit record. Any failure rolls the whole set back and the preview stays
// pending_review.
type ApprovalExecutor struct {
	store    istore.Store
	feedback FeedbackPublisher
}

// NewApprovalExecutor creates a new approval executor.
func NewApprovalExecutor(store istore.Store, feedback FeedbackPublisher) *ApprovalExecutor {
	return &ApprovalExecutor{store: store, feedback: feedback}
}

// Execute runs the approval transaction and publishes the feedback event
// after commit. The caller has already verified status and conflicts.
func (e *ApprovalExecutor) Execute(ctx context.Context, p *types.Preview, version time.Time, rating *string) (*types.ApprovalResult, error) {
	result := &types.ApprovalResult{}

	p.Status = types.PreviewStatusApproved
	event := buildFeedbackEvent(p, types.FeedbackOutcomeApproved, rating)

	err := e.store.RunInTx(ctx, func(tx istore.Store) error {
		customerID, err := e.resolveCustomer(ctx, tx, p)
		if err != nil {
			return err
		}
		projectID, err := e.resolveProject(ctx, tx, p, customerID)
		if err != nil {
			return err
		}

		taskIDs := make([]string, 0, len(p.TasksData))
		for i, task := range p.TasksData {
			id, err := tx.Tasks().CreateTask(ctx, &types.Task{
				OwnerID:     p.OwnerID,
				ProjectID:   projectID,
				Name:        task.Name,
				Description: task.Description,
				Hours:       task.Hours,
				Rate:        task.Rate,
				Position:    i,
			})
			if err != nil {
				return err
			}
			taskIDs = append(taskIDs, id)
		}

		invoiceID, err := tx.Invoices().CreateInvoice(ctx, buildInvoice(p, customerID, projectID))
		if err != nil {
			return err
		}

		updated, err := tx.Previews().UpdatePreview(ctx, p, version)
		if err != nil {
			return err
		}
		*p = *updated

		if _, err := tx.Feedback().SaveFeedback(ctx, event); err != nil {
			return err
		}

		result.CustomerID = customerID
		result.ProjectID = projectID
		result.TaskIDs = taskIDs
		result.InvoiceID = invoiceID
		return nil
	})
	if err != nil {
		p.Status = types.PreviewStatusPendingReview
		if errors.Is(err, istore.ErrStaleVersion) {
			return nil, apperrors.StalePreview(p.ID)
		}
		return nil, apperrors.ApprovalTransactionFailed(err)
	}

	if e.feedback != nil {
		if pubErr := e.feedback.PublishFeedback(ctx, event); pubErr != nil {
			logger.GetLogger().Warnw("Failed to publish approval feedback",
				"previewID", p.ID, "error", pubErr)
		}
	}

	logger.GetLogger().Infow("Preview approved",
		"previewID", p.ID,
		"customerID", result.CustomerID,
		"projectID", result.ProjectID,
		"invoiceID", result.InvoiceID,
		"taskCount", len(result.TaskIDs),
	)
	return result, nil
}

func (e *ApprovalExecutor) resolveCustomer(ctx context.Context, tx istore.Store, p *types.Preview) (string, error) {
	switch p.CustomerAction {
	case types.EntityActionUseExisting:
		id, err := matchedCustomerID(p)
		if err != nil {
			return "", err
		}
		if _, err := tx.Customers().GetCustomer(ctx, id); err != nil {
			return "", err
		}
		return id, nil

	case types.EntityActionMerge:
		id, err := matchedCustomerID(p)
		if err != nil {
			return "", err
		}
		if _, err := tx.Customers().UpdateCustomer(ctx, id, customerMergeUpdate(p.CustomerData)); err != nil {
			return "", err
		}
		return id, nil

	default:
		return tx.Customers().CreateCustomer(ctx, &types.Customer{
			OwnerID: p.OwnerID,
			Name:    p.CustomerData.Name.Value,
			Email:   p.CustomerData.Email.Value,
			Company: p.CustomerData.Company.Value,
			Phone:   p.CustomerData.Phone.Value,
			Address: p.CustomerData.Address.Value,
		})
	}
}

func (e *ApprovalExecutor) resolveProject(ctx context.Context, tx istore.Store, p *types.Preview, customerID string) (string, error) {
	switch p.ProjectAction {
	case types.EntityActionUseExisting:
		id, err := matchedProjectID(p)
		if err != nil {
			return "", err
		}
		if _, err := tx.Projects().GetProject(ctx, id); err != nil {
			return "", err
		}
		return id, nil

	case types.EntityActionMerge:
		id, err := matchedProjectID(p)
		if err != nil {
			return "", err
		}
		if _, err := tx.Projects().UpdateProject(ctx, id, projectMergeUpdate(p.ProjectData)); err != nil {
			return "", err
		}
		return id, nil

	default:
		name := p.ProjectData.Name.Value
		if name == "" {
			// A document without a project section still needs a project to
			// hang tasks and the invoice on.
			name = "Work for " + p.CustomerData.Name.Value
		}
		return tx.Projects().CreateProject(ctx, &types.Project{
			OwnerID:     p.OwnerID,
			CustomerID:  customerID,
			Name:        name,
			Description: p.ProjectData.Description.Value,
			StartDate:   p.ProjectData.StartDate,
			EndDate:     p.ProjectData.EndDate,
		})
	}
}

func matchedCustomerID(p *types.Preview) (string, error) {
	if p.MatchedCustomer != nil {
		return p.MatchedCustomer.ID, nil
	}
	if c := p.SelectedCustomerCandidate(); c != nil {
		return c.ExistingID, nil
	}
	return "", errNoMatchedEntity
}

func matchedProjectID(p *types.Preview) (string, error) {
	if p.MatchedProject != nil {
		return p.MatchedProject.ID, nil
	}
	if c := p.SelectedProjectCandidate(); c != nil {
		return c.ExistingID, nil
	}
	return "", errNoMatchedEntity
}

// errNoMatchedEntity surfaces through ApprovalTransactionFailed: the preview
// points at an existing entity that was never selected.
var errNoMatchedEntity = errors.New("entity action references an existing entity but no match is selected")

// customerMergeUpdate fills only the fields the extraction actually carries;
// empty extracted fields never blank existing data.
func customerMergeUpdate(fields types.CustomerFields) *types.CustomerUpdate {
	update := &types.CustomerUpdate{}
	set := func(dst **string, f types.ExtractedField) {
		if f.Value != "" {
			v := f.Value
			*dst = &v
		}
	}
	set(&update.Name, fields.Name)
	set(&update.Email, fields.Email)
	set(&update.Company, fields.Company)
	set(&update.Phone, fields.Phone)
	set(&update.Address, fields.Address)
	return update
}

func projectMergeUpdate(fields types.ProjectFields) *types.ProjectUpdate {
	update := &types.ProjectUpdate{}
	if fields.Name.Value != "" {
		v := fields.Name.Value
		update.Name = &v
	}
	if fields.Description.Value != "" {
		v := fields.Description.Value
		update.Description = &v
	}
	update.StartDate = fields.StartDate
	update.EndDate = fields.EndDate
	return update
}

func buildInvoice(p *types.Preview, customerID, projectID string) *types.Invoice {
	lineItems := make([]types.InvoiceLineItem, len(p.TasksData))
	for i, task := range p.TasksData {
		lineItems[i] = types.InvoiceLineItem{
			Description: task.Name,
			Hours:       task.Hours,
			Rate:        task.Rate,
			Amount:      task.Amount,
			Position:    i,
		}
	}
	return &types.Invoice{
		OwnerID:      p.OwnerID,
		CustomerID:   customerID,
		ProjectID:    projectID,
		DocumentType: p.DocumentType,
		Subtotal:     p.InvoiceEstimateData.Subtotal,
		TaxRate:      p.InvoiceEstimateData.TaxRate,
		Total:        p.InvoiceEstimateData.Total,
		Currency:     p.InvoiceEstimateData.Currency,
		AIGenerated:  true,
		LineItems:    lineItems,
	}
}
