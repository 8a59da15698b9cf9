package postgres

import (
	"context"

	"github.com/vincentrandon/freelance-project-saas/internal/store"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// TaskStore implements store.TaskStore using PostgreSQL.
type TaskStore struct {
	db DB
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a new TaskStore instance.
func NewTaskStore(db DB) *TaskStore {
	return &TaskStore{db: db}
}

// CreateTask inserts a new task linked to its project. Position preserves
// source-document order.
func (s *TaskStore) CreateTask(ctx context.Context, task *types.Task) (string, error) {
	query := `
		INSERT INTO tasks (owner_id, project_id, name, description, hours, rate, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var id string
	err := s.db.QueryRow(ctx, query,
		task.OwnerID,
		task.ProjectID,
		task.Name,
		task.Description,
		task.Hours,
		task.Rate,
		task.Position,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
