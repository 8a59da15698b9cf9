package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vincentrandon/freelance-project-saas/internal/store"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// PreviewStore implements store.PreviewStore using PostgreSQL. The preview's
// structured sections (extracted data, qualities, candidates, snapshots) are
// stored as JSONB; the fields the queries filter and aggregate on are plain
// columns.
type PreviewStore struct {
	db DB
}

var _ store.PreviewStore = (*PreviewStore)(nil)

// NewPreviewStore creates a new PreviewStore instance.
func NewPreviewStore(db DB) *PreviewStore {
	return &PreviewStore{db: db}
}

const previewColumns = `id, document_id, owner_id, status, document_type,
	customer_data, customer_action, project_data, project_action,
	tasks_data, task_qualities, invoice_estimate_data, extraction_snapshot,
	matched_customer, matched_project, customer_candidates, project_candidates,
	warnings, conflicts,
	customer_match_confidence, project_match_confidence, overall_confidence,
	overall_task_quality_score, auto_approve_eligible, clarification_skipped,
	had_edits, created_at, updated_at`

type previewJSON struct {
	customerData       []byte
	projectData        []byte
	tasksData          []byte
	taskQualities      []byte
	financials         []byte
	extractionSnapshot []byte
	matchedCustomer    []byte
	matchedProject     []byte
	customerCandidates []byte
	projectCandidates  []byte
	warnings           []byte
	conflicts          []byte
}

func marshalPreviewJSON(p *types.Preview) (*previewJSON, error) {
	j := &previewJSON{}
	var err error
	marshal := func(v interface{}) []byte {
		if err != nil {
			return nil
		}
		var b []byte
		b, err = json.Marshal(v)
		return b
	}

	j.customerData = marshal(p.CustomerData)
	j.projectData = marshal(p.ProjectData)
	j.tasksData = marshal(p.TasksData)
	j.taskQualities = marshal(p.TaskQualities)
	j.financials = marshal(p.InvoiceEstimateData)
	j.customerCandidates = marshal(p.CustomerCandidates)
	j.projectCandidates = marshal(p.ProjectCandidates)
	j.warnings = marshal(p.Warnings)
	j.conflicts = marshal(p.Conflicts)
	if p.ExtractionSnapshot != nil {
		j.extractionSnapshot = marshal(p.ExtractionSnapshot)
	}
	if p.MatchedCustomer != nil {
		j.matchedCustomer = marshal(p.MatchedCustomer)
	}
	if p.MatchedProject != nil {
		j.matchedProject = marshal(p.MatchedProject)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preview data: %w", err)
	}
	return j, nil
}

func scanPreview(row pgx.Row) (*types.Preview, error) {
	p := &types.Preview{}
	j := &previewJSON{}

	err := row.Scan(
		&p.ID, &p.DocumentID, &p.OwnerID, &p.Status, &p.DocumentType,
		&j.customerData, &p.CustomerAction, &j.projectData, &p.ProjectAction,
		&j.tasksData, &j.taskQualities, &j.financials, &j.extractionSnapshot,
		&j.matchedCustomer, &j.matchedProject, &j.customerCandidates, &j.projectCandidates,
		&j.warnings, &j.conflicts,
		&p.CustomerMatchConfidence, &p.ProjectMatchConfidence, &p.OverallConfidence,
		&p.OverallTaskQualityScore, &p.AutoApproveEligible, &p.ClarificationSkipped,
		&p.HadEdits, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	unmarshal := func(b []byte, v interface{}) {
		if err != nil || len(b) == 0 {
			return
		}
		err = json.Unmarshal(b, v)
	}

	unmarshal(j.customerData, &p.CustomerData)
	unmarshal(j.projectData, &p.ProjectData)
	unmarshal(j.tasksData, &p.TasksData)
	unmarshal(j.taskQualities, &p.TaskQualities)
	unmarshal(j.financials, &p.InvoiceEstimateData)
	unmarshal(j.customerCandidates, &p.CustomerCandidates)
	unmarshal(j.projectCandidates, &p.ProjectCandidates)
	unmarshal(j.warnings, &p.Warnings)
	unmarshal(j.conflicts, &p.Conflicts)
	if len(j.extractionSnapshot) > 0 {
		p.ExtractionSnapshot = &types.RawExtraction{}
		unmarshal(j.extractionSnapshot, p.ExtractionSnapshot)
	}
	if len(j.matchedCustomer) > 0 {
		p.MatchedCustomer = &types.Customer{}
		unmarshal(j.matchedCustomer, p.MatchedCustomer)
	}
	if len(j.matchedProject) > 0 {
		p.MatchedProject = &types.Project{}
		unmarshal(j.matchedProject, p.MatchedProject)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal preview data: %w", err)
	}
	return p, nil
}

// CreatePreview inserts a new preview and returns its generated ID. The
// partial unique index on (document_id) for non-terminal statuses enforces
// the one-active-preview-per-document invariant at the database level.
func (s *PreviewStore) CreatePreview(ctx context.Context, preview *types.Preview) (string, error) {
	j, err := marshalPreviewJSON(preview)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO previews (document_id, owner_id, status, document_type,
			customer_data, customer_action, project_data, project_action,
			tasks_data, task_qualities, invoice_estimate_data, extraction_snapshot,
			matched_customer, matched_project, customer_candidates, project_candidates,
			warnings, conflicts,
			customer_match_confidence, project_match_confidence, overall_confidence,
			overall_task_quality_score, auto_approve_eligible, clarification_skipped, had_edits)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		RETURNING id`

	var id string
	err = s.db.QueryRow(ctx, query,
		preview.DocumentID, preview.OwnerID, preview.Status, preview.DocumentType,
		j.customerData, preview.CustomerAction, j.projectData, preview.ProjectAction,
		j.tasksData, j.taskQualities, j.financials, j.extractionSnapshot,
		j.matchedCustomer, j.matchedProject, j.customerCandidates, j.projectCandidates,
		j.warnings, j.conflicts,
		preview.CustomerMatchConfidence, preview.ProjectMatchConfidence, preview.OverallConfidence,
		preview.OverallTaskQualityScore, preview.AutoApproveEligible, preview.ClarificationSkipped,
		preview.HadEdits,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetPreview retrieves a preview by ID.
func (s *PreviewStore) GetPreview(ctx context.Context, id string) (*types.Preview, error) {
	query := `SELECT ` + previewColumns + ` FROM previews WHERE id = $1`
	return scanPreview(s.db.QueryRow(ctx, query, id))
}

// GetActivePreviewByDocument retrieves the document's non-terminal preview.
func (s *PreviewStore) GetActivePreviewByDocument(ctx context.Context, documentID string) (*types.Preview, error) {
	query := `
		SELECT ` + previewColumns + `
		FROM previews
		WHERE document_id = $1 AND status IN ('pending_review', 'needs_clarification')`
	return scanPreview(s.db.QueryRow(ctx, query, documentID))
}

// GetPreviewsByIDs retrieves previews for the given IDs. Missing IDs are
// simply absent from the result; batch callers handle them per item.
func (s *PreviewStore) GetPreviewsByIDs(ctx context.Context, ids []string) ([]*types.Preview, error) {
	query := `SELECT ` + previewColumns + ` FROM previews WHERE id = ANY($1)`

	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPreviews(rows)
}

// ListPendingByOwner retrieves all non-terminal previews for one owner,
// oldest first.
func (s *PreviewStore) ListPendingByOwner(ctx context.Context, ownerID string) ([]*types.Preview, error) {
	query := `
		SELECT ` + previewColumns + `
		FROM previews
		WHERE owner_id = $1 AND status IN ('pending_review', 'needs_clarification')
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPreviews(rows)
}

func collectPreviews(rows pgx.Rows) ([]*types.Preview, error) {
	var previews []*types.Preview
	for rows.Next() {
		p, err := scanPreview(rows)
		if err != nil {
			return nil, err
		}
		previews = append(previews, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return previews, nil
}

// UpdatePreview persists the preview using updated_at as an optimistic
// version token. The row is written only if it still carries
// expectedVersion; otherwise ErrStaleVersion (or ErrNotFound if the row is
// gone) is returned and nothing changes.
func (s *PreviewStore) UpdatePreview(ctx context.Context, preview *types.Preview, expectedVersion time.Time) (*types.Preview, error) {
	j, err := marshalPreviewJSON(preview)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE previews
		SET status = $1,
			customer_data = $2, customer_action = $3,
			project_data = $4, project_action = $5,
			tasks_data = $6, task_qualities = $7, invoice_estimate_data = $8,
			matched_customer = $9, matched_project = $10,
			customer_candidates = $11, project_candidates = $12,
			warnings = $13, conflicts = $14,
			customer_match_confidence = $15, project_match_confidence = $16,
			overall_confidence = $17, overall_task_quality_score = $18,
			auto_approve_eligible = $19, clarification_skipped = $20, had_edits = $21,
			updated_at = clock_timestamp()
		WHERE id = $22 AND updated_at = $23
		RETURNING ` + previewColumns

	updated, err := scanPreview(s.db.QueryRow(ctx, query,
		preview.Status,
		j.customerData, preview.CustomerAction,
		j.projectData, preview.ProjectAction,
		j.tasksData, j.taskQualities, j.financials,
		j.matchedCustomer, j.matchedProject,
		j.customerCandidates, j.projectCandidates,
		j.warnings, j.conflicts,
		preview.CustomerMatchConfidence, preview.ProjectMatchConfidence,
		preview.OverallConfidence, preview.OverallTaskQualityScore,
		preview.AutoApproveEligible, preview.ClarificationSkipped, preview.HadEdits,
		preview.ID, expectedVersion,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// No row matched: distinguish a concurrent edit from a missing preview.
	var exists bool
	if checkErr := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM previews WHERE id = $1)`, preview.ID,
	).Scan(&exists); checkErr != nil {
		return nil, checkErr
	}
	if exists {
		return nil, store.ErrStaleVersion
	}
	return nil, store.ErrNotFound
}
