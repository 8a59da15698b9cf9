package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	istore "github.com/vincentrandon/freelance-project-saas/internal/store"
	"github.com/vincentrandon/freelance-project-saas/types"
)

type MockCustomerStore struct {
	mock.Mock
}

func (m *MockCustomerStore) ListByOwner(ctx context.Context, ownerID string) ([]*types.Customer, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Customer), args.Error(1)
}

func (m *MockCustomerStore) GetCustomer(ctx context.Context, id string) (*types.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Customer), args.Error(1)
}

func (m *MockCustomerStore) CreateCustomer(ctx context.Context, customer *types.Customer) (string, error) {
	args := m.Called(ctx, customer)
	return args.String(0), args.Error(1)
}

func (m *MockCustomerStore) UpdateCustomer(ctx context.Context, id string, update *types.CustomerUpdate) (*types.Customer, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Customer), args.Error(1)
}

type MockProjectStore struct {
	mock.Mock
}

func (m *MockProjectStore) ListByOwner(ctx context.Context, ownerID string) ([]*types.Project, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Project), args.Error(1)
}

func (m *MockProjectStore) GetProject(ctx context.Context, id string) (*types.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Project), args.Error(1)
}

func (m *MockProjectStore) CreateProject(ctx context.Context, project *types.Project) (string, error) {
	args := m.Called(ctx, project)
	return args.String(0), args.Error(1)
}

func (m *MockProjectStore) UpdateProject(ctx context.Context, id string, update *types.ProjectUpdate) (*types.Project, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Project), args.Error(1)
}

type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) CreateTask(ctx context.Context, task *types.Task) (string, error) {
	args := m.Called(ctx, task)
	return args.String(0), args.Error(1)
}

type MockInvoiceStore struct {
	mock.Mock
}

func (m *MockInvoiceStore) CreateInvoice(ctx context.Context, invoice *types.Invoice) (string, error) {
	args := m.Called(ctx, invoice)
	return args.String(0), args.Error(1)
}

type MockPreviewStore struct {
	mock.Mock
}

func (m *MockPreviewStore) CreatePreview(ctx context.Context, preview *types.Preview) (string, error) {
	args := m.Called(ctx, preview)
	return args.String(0), args.Error(1)
}

func (m *MockPreviewStore) GetPreview(ctx context.Context, id string) (*types.Preview, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Preview), args.Error(1)
}

func (m *MockPreviewStore) GetActivePreviewByDocument(ctx context.Context, documentID string) (*types.Preview, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Preview), args.Error(1)
}

func (m *MockPreviewStore) GetPreviewsByIDs(ctx context.Context, ids []string) ([]*types.Preview, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Preview), args.Error(1)
}

func (m *MockPreviewStore) ListPendingByOwner(ctx context.Context, ownerID string) ([]*types.Preview, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Preview), args.Error(1)
}

// UpdatePreview echoes the preview it was given when the expectation returns
// a nil row with no error, mirroring the store's RETURNING behaviour without
//every test having to restate the struct.
func (m *MockPreviewStore) UpdatePreview(ctx context.Context, preview *types.Preview, expectedVersion time.Time) (*types.Preview, error) {
	args := m.Called(ctx, preview, expectedVersion)
	if args.Get(0) == nil {
		if args.Error(1) == nil {
			return preview, nil
		}
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Preview), args.Error(1)
}

type MockFeedbackStore struct {
	mock.Mock
}

func (m *MockFeedbackStore) SaveFeedback(ctx context.Context, event *types.FeedbackEvent) (string, error) {
	args := m.Called(ctx, event)
	return args.String(0), args.Error(1)
}

type MockFeedbackPublisher struct {
	mock.Mock
}

func (m *MockFeedbackPublisher) PublishFeedback(ctx context.Context, event *types.FeedbackEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// mockStore bundles the sub-store mocks behind the aggregate interface.
// RunInTx simply runs the callback against the same store, which preserves
// the all-or-nothing error contract the executor relies on.
type mockStore struct {
	customers *MockCustomerStore
	projects  *MockProjectStore
	tasks     *MockTaskStore
	invoices  *MockInvoiceStore
	previews  *MockPreviewStore
	feedback  *MockFeedbackStore
}

func newMockStore() *mockStore {
	return &mockStore{
		customers: new(MockCustomerStore),
		projects:  new(MockProjectStore),
		tasks:     new(MockTaskStore),
		invoices:  new(MockInvoiceStore),
		previews:  new(MockPreviewStore),
		feedback:  new(MockFeedbackStore),
	}
}

func (s *mockStore) Customers() istore.CustomerStore { return s.customers }
func (s *mockStore) Projects() istore.ProjectStore   { return s.projects }
func (s *mockStore) Tasks() istore.TaskStore         { return s.tasks }
func (s *mockStore) Invoices() istore.InvoiceStore   { return s.invoices }
func (s *mockStore) Previews() istore.PreviewStore   { return s.previews }
func (s *mockStore) Feedback() istore.FeedbackStore  { return s.feedback }

func (s *mockStore) RunInTx(ctx context.Context, fn func(istore.Store) error) error {
	return fn(s)
}
