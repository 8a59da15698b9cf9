package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vincentrandon/freelance-project-saas/errors"
	istore "github.com/vincentrandon/freelance-project-saas/internal/store"
	"github.com/vincentrandon/freelance-project-saas/models/preview/service"
	"github.com/vincentrandon/freelance-project-saas/types"
)

func approvablePreview() *types.Preview {
	p := pendingPreview()
	p.CustomerData = types.CustomerFields{
		Name:  types.ExtractedField{Value: "Acme Corp", Confidence: 95},
		Email: types.ExtractedField{Value: "billing@acme.test", Confidence: 90},
	}
	p.ProjectData = types.ProjectFields{
		Name: types.ExtractedField{Value: "Website Redesign", Confidence: 92},
	}
	p.TasksData = []types.ExtractedTask{
		{Name: "Implement responsive layout overhaul", Hours: dec("6"), Rate: dec("80"), Amount: dec("480")},
		{Name: "Cross-browser regression pass", Hours: dec("4"), Rate: dec("80"), Amount: dec("320")},
	}
	p.TaskQualities = []types.TaskQuality{{ClarityScore: 100}, {ClarityScore: 100}}
	p.InvoiceEstimateData = types.Financials{
		Subtotal: dec("800"),
		Total:    dec("800"),
		Currency: "EUR",
	}
	return p
}

func TestExecute_CreateNewEntities(t *testing.T) {
	store := newMockStore()
	publisher := new(MockFeedbackPublisher)
	executor := service.NewApprovalExecutor(store, publisher)

	p := approvablePreview()
	version := p.UpdatedAt

	store.customers.On("CreateCustomer", mock.Anything, mock.MatchedBy(func(c *types.Customer) bool {
		return c.OwnerID == testOwner && c.Name == "Acme Corp" && c.Email == "billing@acme.test"
	})).Return("c-9", nil)
	store.projects.On("CreateProject", mock.Anything, mock.MatchedBy(func(pr *types.Project) bool {
		return pr.CustomerID == "c-9" && pr.Name == "Website Redesign"
	})).Return("pr-9", nil)
	store.tasks.On("CreateTask", mock.Anything, mock.MatchedBy(func(task *types.Task) bool {
		return task.ProjectID == "pr-9" && task.Position == 0
	})).Return("t-1", nil).Once()
	store.tasks.On("CreateTask", mock.Anything, mock.MatchedBy(func(task *types.Task) bool {
		return task.ProjectID == "pr-9" && task.Position == 1
	})).Return("t-2", nil).Once()
	store.invoices.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(inv *types.Invoice) bool {
		return inv.AIGenerated &&
			inv.CustomerID == "c-9" &&
			inv.ProjectID == "pr-9" &&
			inv.DocumentType == types.DocumentTypeInvoice &&
			len(inv.LineItems) == 2 &&
			inv.LineItems[1].Position == 1
	})).Return("inv-9", nil)
	store.previews.On("UpdatePreview", mock.Anything, mock.MatchedBy(func(pv *types.Preview) bool {
		return pv.Status == types.PreviewStatusApproved
	}), version).Return(nil, nil)
	store.feedback.On("SaveFeedback", mock.Anything, mock.Anything).Return("f-1", nil)
	publisher.On("PublishFeedback", mock.Anything, mock.MatchedBy(func(e *types.FeedbackEvent) bool {
		return e.Outcome == types.FeedbackOutcomeApproved && e.PreviewID == "p-1"
	})).Return(nil)

	result, err := executor.Execute(context.Background(), p, version, nil)
	require.NoError(t, err)

	assert.Equal(t, "c-9", result.CustomerID)
	assert.Equal(t, "pr-9", result.ProjectID)
	assert.Equal(t, []string{"t-1", "t-2"}, result.TaskIDs)
	assert.Equal(t, "inv-9", result.InvoiceID)
	assert.Equal(t, types.PreviewStatusApproved, p.Status)
	publisher.AssertExpectations(t)
	store.feedback.AssertExpectations(t)
}

func TestExecute_TaskFailureRollsBack(t *testing.T) {
	store := newMockStore()
	publisher := new(MockFeedbackPublisher)
	executor := service.NewApprovalExecutor(store, publisher)

	p := approvablePreview()

	store.customers.On("CreateCustomer", mock.Anything, mock.Anything).Return("c-9", nil)
	store.projects.On("CreateProject", mock.Anything, mock.Anything).Return("pr-9", nil)
	store.tasks.On("CreateTask", mock.Anything, mock.Anything).Return("", assert.AnError)

	_, err := executor.Execute(context.Background(), p, p.UpdatedAt, nil)

	appErr := requireAppError(t, err, apperrors.ApprovalTransactionFailedError)
	// The failure cause travels verbatim so the caller can show it.
	assert.Contains(t, appErr.Detail, assert.AnError.Error())
	assert.Equal(t, types.PreviewStatusPendingReview, p.Status)
	store.invoices.AssertNotCalled(t, "CreateInvoice", mock.Anything, mock.Anything)
	store.feedback.AssertNotCalled(t, "SaveFeedback", mock.Anything, mock.Anything)
	publisher.AssertNotCalled(t, "PublishFeedback", mock.Anything, mock.Anything)
}

func TestExecute_MergeCustomerFillsOnlyExtractedFields(t *testing.T) {
	store := newMockStore()
	executor := service.NewApprovalExecutor(store, nil)

	p := approvablePreview()
	p.CustomerAction = types.EntityActionMerge
	p.MatchedCustomer = &types.Customer{ID: "c-1", OwnerID: testOwner, Name: "Acme", Phone: "+33 1 00 00 00 00"}
	p.CustomerData.Phone = types.ExtractedField{} // Not extracted; must stay untouched

	store.customers.On("UpdateCustomer", mock.Anything, "c-1", mock.MatchedBy(func(u *types.CustomerUpdate) bool {
		return u.Name != nil && *u.Name == "Acme Corp" &&
			u.Email != nil && *u.Email == "billing@acme.test" &&
			u.Phone == nil
	})).Return(&types.Customer{ID: "c-1"}, nil)
	store.projects.On("CreateProject", mock.Anything, mock.Anything).Return("pr-9", nil)
	store.tasks.On("CreateTask", mock.Anything, mock.Anything).Return("t-1", nil)
	store.invoices.On("CreateInvoice", mock.Anything, mock.Anything).Return("inv-9", nil)
	store.previews.On("UpdatePreview", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	store.feedback.On("SaveFeedback", mock.Anything, mock.Anything).Return("f-1", nil)

	result, err := executor.Execute(context.Background(), p, p.UpdatedAt, nil)
	require.NoError(t, err)

	assert.Equal(t, "c-1", result.CustomerID)
	store.customers.AssertExpectations(t)
	store.customers.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
}

func TestExecute_UseExistingProject(t *testing.T) {
	store := newMockStore()
	executor := service.NewApprovalExecutor(store, nil)

	p := approvablePreview()
	p.ProjectAction = types.EntityActionUseExisting
	p.MatchedProject = &types.Project{ID: "pr-1", OwnerID: testOwner, Name: "Website Redesign"}

	store.customers.On("CreateCustomer", mock.Anything, mock.Anything).Return("c-9", nil)
	store.projects.On("GetProject", mock.Anything, "pr-1").Return(p.MatchedProject, nil)
	store.tasks.On("CreateTask", mock.Anything, mock.MatchedBy(func(task *types.Task) bool {
		return task.ProjectID == "pr-1"
	})).Return("t-1", nil)
	store.invoices.On("CreateInvoice", mock.Anything, mock.Anything).Return("inv-9", nil)
	store.previews.On("UpdatePreview", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	store.feedback.On("SaveFeedback", mock.Anything, mock.Anything).Return("f-1", nil)

	result, err := executor.Execute(context.Background(), p, p.UpdatedAt, nil)
	require.NoError(t, err)

	assert.Equal(t, "pr-1", result.ProjectID)
	store.projects.AssertNotCalled(t, "CreateProject", mock.Anything, mock.Anything)
}

func TestExecute_StaleVersion(t *testing.T) {
	store := newMockStore()
	executor := service.NewApprovalExecutor(store, nil)

	p := approvablePreview()

	store.customers.On("CreateCustomer", mock.Anything, mock.Anything).Return("c-9", nil)
	store.projects.On("CreateProject", mock.Anything, mock.Anything).Return("pr-9", nil)
	store.tasks.On("CreateTask", mock.Anything, mock.Anything).Return("t-1", nil)
	store.invoices.On("CreateInvoice", mock.Anything, mock.Anything).Return("inv-9", nil)
	store.previews.On("UpdatePreview", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, istore.ErrStaleVersion)

	_, err := executor.Execute(context.Background(), p, p.UpdatedAt, nil)

	requireAppError(t, err, apperrors.StalePreviewError)
	assert.Equal(t, types.PreviewStatusPendingReview, p.Status)
	store.feedback.AssertNotCalled(t, "SaveFeedback", mock.Anything, mock.Anything)
}

// Approval through the service front door: the executor result comes back
// and the preview is terminal afterwards.
func TestApprove_EndToEnd(t *testing.T) {
	store := newMockStore()
	publisher := new(MockFeedbackPublisher)
	svc := newTestService(store, publisher)

	p := approvablePreview()
	version := p.UpdatedAt
	store.previews.On("GetPreview", mock.Anything, "p-1").Return(p, nil)
	store.customers.On("CreateCustomer", mock.Anything, mock.Anything).Return("c-9", nil)
	store.projects.On("CreateProject", mock.Anything, mock.Anything).Return("pr-9", nil)
	store.tasks.On("CreateTask", mock.Anything, mock.Anything).Return("t-1", nil)
	store.invoices.On("CreateInvoice", mock.Anything, mock.Anything).Return("inv-9", nil)
	store.previews.On("UpdatePreview", mock.Anything, mock.Anything, version).Return(nil, nil)
	store.feedback.On("SaveFeedback", mock.Anything, mock.Anything).Return("f-1", nil)
	publisher.On("PublishFeedback", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Approve(context.Background(), "p-1", testOwner, version, nil)
	require.NoError(t, err)

	assert.Equal(t, "inv-9", result.InvoiceID)
	assert.Len(t, result.TaskIDs, 2)
}
