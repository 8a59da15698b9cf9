package store

import (
	"context"
	"time"

	"github.com/vincentrandon/freelance-project-saas/types"
)

// CustomerStore handles customer data operations. All reads are scoped by
// owner: matching against another user's customers is a correctness
// violation, not just a privacy one.
type CustomerStore interface {
	ListByOwner(ctx context.Context, ownerID string) ([]*types.Customer, error)
	GetCustomer(ctx context.Context, id string) (*types.Customer, error)
	CreateCustomer(ctx context.Context, customer *types.Customer) (string, error)
	UpdateCustomer(ctx context.Context, id string, update *types.CustomerUpdate) (*types.Customer, error)
}

// ProjectStore handles project data operations, owner-scoped like customers.
type ProjectStore interface {
	ListByOwner(ctx context.Context, ownerID string) ([]*types.Project, error)
	GetProject(ctx context.Context, id string) (*types.Project, error)
	CreateProject(ctx context.Context, project *types.Project) (string, error)
	UpdateProject(ctx context.Context, id string, update *types.ProjectUpdate) (*types.Project, error)
}

// TaskStore handles task creation during approval.
type TaskStore interface {
	CreateTask(ctx context.Context, task *types.Task) (string, error)
}

// InvoiceStore handles invoice/estimate creation during approval. Line items
// are created together with their invoice.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, invoice *types.Invoice) (string, error)
}

// PreviewStore handles reconciliation preview persistence.
type PreviewStore interface {
	CreatePreview(ctx context.Context, preview *types.Preview) (string, error)
	GetPreview(ctx context.Context, id string) (*types.Preview, error)
	// GetActivePreviewByDocument returns the document's non-terminal preview.
	// A document owns at most one at a time.
	GetActivePreviewByDocument(ctx context.Context, documentID string) (*types.Preview, error)
	GetPreviewsByIDs(ctx context.Context, ids []string) ([]*types.Preview, error)
	ListPendingByOwner(ctx context.Context, ownerID string) ([]*types.Preview, error)
	// UpdatePreview persists the preview if and only if the stored row still
	// carries expectedVersion as its updated_at. Returns ErrStaleVersion
	// otherwise.
	UpdatePreview(ctx context.Context, preview *types.Preview, expectedVersion time.Time) (*types.Preview, error)
}

// FeedbackStore persists feedback records for the learning loop audit trail.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, event *types.FeedbackEvent) (string, error)
}

// Store provides a unified interface for all data operations. RunInTx runs fn
// against a store whose operations share one database transaction; any error
// rolls everything back. It is the atomicity boundary for the approval
// executor's multi-entity creation.
type Store interface {
	Customers() CustomerStore
	Projects() ProjectStore
	Tasks() TaskStore
	Invoices() InvoiceStore
	Previews() PreviewStore
	Feedback() FeedbackStore
	RunInTx(ctx context.Context, fn func(Store) error) error
}
