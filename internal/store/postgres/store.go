package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vincentrandon/freelance-project-saas/internal/store"
)

// DB is the subset of pgxpool.Pool the stores rely on. pgx.Tx and
// pgxmock pools satisfy it as well, so the same store code runs inside a
// transaction and under test.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store aggregates the PostgreSQL store implementations behind one handle.
type Store struct {
	db        DB
	customers *CustomerStore
	projects  *ProjectStore
	tasks     *TaskStore
	invoices  *InvoiceStore
	previews  *PreviewStore
	feedback  *FeedbackStore
}

var _ store.Store = (*Store)(nil)

// NewStore creates a Store backed by the given database handle.
func NewStore(db DB) *Store {
	return &Store{
		db:        db,
		customers: NewCustomerStore(db),
		projects:  NewProjectStore(db),
		tasks:     NewTaskStore(db),
		invoices:  NewInvoiceStore(db),
		previews:  NewPreviewStore(db),
		feedback:  NewFeedbackStore(db),
	}
}

func (s *Store) Customers() store.CustomerStore { return s.customers }
func (s *Store) Projects() store.ProjectStore   { return s.projects }
func (s *Store) Tasks() store.TaskStore         { return s.tasks }
func (s *Store) Invoices() store.InvoiceStore   { return s.invoices }
func (s *Store) Previews() store.PreviewStore   { return s.previews }
func (s *Store) Feedback() store.FeedbackStore  { return s.feedback }

// RunInTx executes fn against a transaction-bound copy of the store. The
// transaction commits only if fn returns nil; any error (or panic) rolls the
// whole unit back, leaving no partial entities behind.
func (s *Store) RunInTx(ctx context.Context, fn func(store.Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(NewStore(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
