package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vincentrandon/freelance-project-saas/internal/store"
	"github.com/vincentrandon/freelance-project-saas/types"
)

func previewRowColumns() []string {
	return []string{
		"id", "document_id", "owner_id", "status", "document_type",
		"customer_data", "customer_action", "project_data", "project_action",
		"tasks_data", "task_qualities", "invoice_estimate_data", "extraction_snapshot",
		"matched_customer", "matched_project", "customer_candidates", "project_candidates",
		"warnings", "conflicts",
		"customer_match_confidence", "project_match_confidence", "overall_confidence",
		"overall_task_quality_score", "auto_approve_eligible", "clarification_skipped",
		"had_edits", "created_at", "updated_at",
	}
}

func samplePreview(t *testing.T) *types.Preview {
	t.Helper()
	return &types.Preview{
		ID:           "p-1",
		DocumentID:   "doc-1",
		OwnerID:      "owner-1",
		Status:       types.PreviewStatusPendingReview,
		DocumentType: types.DocumentTypeInvoice,
		CustomerData: types.CustomerFields{
			Name: types.ExtractedField{Value: "Acme GmbH", Confidence: 95},
		},
		CustomerAction: types.EntityActionCreateNew,
		ProjectAction:  types.EntityActionCreateNew,
		TasksData: []types.ExtractedTask{
			{Name: "Design landing page", Hours: decimal.NewFromInt(8), Rate: decimal.NewFromInt(50), Amount: decimal.NewFromInt(400)},
		},
		TaskQualities: []types.TaskQuality{{ClarityScore: 100}},
		InvoiceEstimateData: types.Financials{
			Subtotal: decimal.NewFromInt(400),
			Total:    decimal.NewFromInt(400),
			Currency: "EUR",
		},
		Warnings:  []string{},
		Conflicts: []string{},
	}
}

func previewRowFor(t *testing.T, p *types.Preview, now time.Time) *pgxmock.Rows {
	t.Helper()
	mustJSON := func(v interface{}) []byte {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return b
	}
	var snapshot, matchedCustomer, matchedProject []byte
	if p.ExtractionSnapshot != nil {
		snapshot = mustJSON(p.ExtractionSnapshot)
	}
	if p.MatchedCustomer != nil {
		matchedCustomer = mustJSON(p.MatchedCustomer)
	}
	if p.MatchedProject != nil {
		matchedProject = mustJSON(p.MatchedProject)
	}
	return pgxmock.NewRows(previewRowColumns()).AddRow(
		p.ID, p.DocumentID, p.OwnerID, p.Status, p.DocumentType,
		mustJSON(p.CustomerData), p.CustomerAction, mustJSON(p.ProjectData), p.ProjectAction,
		mustJSON(p.TasksData), mustJSON(p.TaskQualities), mustJSON(p.InvoiceEstimateData), snapshot,
		matchedCustomer, matchedProject, mustJSON(p.CustomerCandidates), mustJSON(p.ProjectCandidates),
		mustJSON(p.Warnings), mustJSON(p.Conflicts),
		p.CustomerMatchConfidence, p.ProjectMatchConfidence, p.OverallConfidence,
		p.OverallTaskQualityScore, p.AutoApproveEligible, p.ClarificationSkipped,
		p.HadEdits, now, now,
	)
}

func TestPreviewStore_GetPreviewRoundTrip(t *testing.T) {
	mock := newMockPool(t)
	s := NewPreviewStore(mock)

	p := samplePreview(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM previews WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnRows(previewRowFor(t, p, now))

	got, err := s.GetPreview(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, types.PreviewStatusPendingReview, got.Status)
	require.Len(t, got.TasksData, 1)
	// Numeric fields survive storage without reformatting.
	assert.True(t, got.TasksData[0].Hours.Equal(decimal.NewFromInt(8)))
	assert.True(t, got.TasksData[0].Amount.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, "EUR", got.InvoiceEstimateData.Currency)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreviewStore_GetPreviewNotFound(t *testing.T) {
	mock := newMockPool(t)
	s := NewPreviewStore(mock)

	mock.ExpectQuery(`SELECT (.+) FROM previews WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(previewRowColumns()))

	_, err := s.GetPreview(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPreviewStore_UpdatePreviewStaleVersion(t *testing.T) {
	mock := newMockPool(t)
	s := NewPreviewStore(mock)

	p := samplePreview(t)
	staleVersion := time.Now().Add(-time.Minute)

	// The versioned UPDATE matches no row, then the existence probe finds the
	// preview: a concurrent edit moved the version forward.
	mock.ExpectQuery(`UPDATE previews`).
		WillReturnRows(pgxmock.NewRows(previewRowColumns()))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := s.UpdatePreview(context.Background(), p, staleVersion)
	assert.ErrorIs(t, err, store.ErrStaleVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreviewStore_UpdatePreviewMissingRow(t *testing.T) {
	mock := newMockPool(t)
	s := NewPreviewStore(mock)

	p := samplePreview(t)

	mock.ExpectQuery(`UPDATE previews`).
		WillReturnRows(pgxmock.NewRows(previewRowColumns()))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := s.UpdatePreview(context.Background(), p, time.Now())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_RunInTxRollsBackOnError(t *testing.T) {
	mock := newMockPool(t)
	s := NewStore(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO customers`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("c-1"))
	mock.ExpectQuery(`INSERT INTO invoices`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.RunInTx(context.Background(), func(tx store.Store) error {
		if _, err := tx.Customers().CreateCustomer(context.Background(), &types.Customer{OwnerID: "o", Name: "n"}); err != nil {
			return err
		}
		_, err := tx.Invoices().CreateInvoice(context.Background(), &types.Invoice{OwnerID: "o"})
		return err
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RunInTxCommits(t *testing.T) {
	mock := newMockPool(t)
	s := NewStore(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO customers`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("c-1"))
	mock.ExpectCommit()

	err := s.RunInTx(context.Background(), func(tx store.Store) error {
		_, err := tx.Customers().CreateCustomer(context.Background(), &types.Customer{OwnerID: "o", Name: "n"})
		return err
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
