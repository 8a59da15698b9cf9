package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/vincentrandon/freelance-project-saas/internal/store"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// ProjectStore implements store.ProjectStore using PostgreSQL.
type ProjectStore struct {
	db DB
}

var _ store.ProjectStore = (*ProjectStore)(nil)

// NewProjectStore creates a new ProjectStore instance.
func NewProjectStore(db DB) *ProjectStore {
	return &ProjectStore{db: db}
}

const projectColumns = `id, owner_id, customer_id, name, description, start_date, end_date, created_at, updated_at`

func scanProject(row pgx.Row) (*types.Project, error) {
	p := &types.Project{}
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.CustomerID, &p.Name, &p.Description,
		&p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListByOwner retrieves all projects belonging to one owner, most recently
// updated first (tie-break order for the matcher).
func (s *ProjectStore) ListByOwner(ctx context.Context, ownerID string) ([]*types.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*types.Project
	for rows.Next() {
		p := &types.Project{}
		err := rows.Scan(
			&p.ID, &p.OwnerID, &p.CustomerID, &p.Name, &p.Description,
			&p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject retrieves a project by ID.
func (s *ProjectStore) GetProject(ctx context.Context, id string) (*types.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE id = $1 AND deleted_at IS NULL`

	return scanProject(s.db.QueryRow(ctx, query, id))
}

// CreateProject inserts a new project linked to its customer.
func (s *ProjectStore) CreateProject(ctx context.Context, project *types.Project) (string, error) {
	query := `
		INSERT INTO projects (owner_id, customer_id, name, description, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id string
	err := s.db.QueryRow(ctx, query,
		project.OwnerID,
		project.CustomerID,
		project.Name,
		project.Description,
		project.StartDate,
		project.EndDate,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateProject merges the non-nil update fields into an existing project.
func (s *ProjectStore) UpdateProject(ctx context.Context, id string, update *types.ProjectUpdate) (*types.Project, error) {
	query := `
		UPDATE projects
		SET name = COALESCE($1, name),
			description = COALESCE($2, description),
			start_date = COALESCE($3, start_date),
			end_date = COALESCE($4, end_date),
			updated_at = NOW()
		WHERE id = $5 AND deleted_at IS NULL
		RETURNING ` + projectColumns

	return scanProject(s.db.QueryRow(ctx, query,
		update.Name,
		update.Description,
		update.StartDate,
		update.EndDate,
		id,
	))
}
