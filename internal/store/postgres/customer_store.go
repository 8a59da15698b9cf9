package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/vincentrandon/freelance-project-saas/internal/store"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// CustomerStore implements store.CustomerStore using PostgreSQL.
type CustomerStore struct {
	db DB
}

var _ store.CustomerStore = (*CustomerStore)(nil)

// NewCustomerStore creates a new CustomerStore instance.
func NewCustomerStore(db DB) *CustomerStore {
	return &CustomerStore{db: db}
}

const customerColumns = `id, owner_id, name, email, company, phone, address, created_at, updated_at`

func scanCustomer(row pgx.Row) (*types.Customer, error) {
	c := &types.Customer{}
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.Company,
		&c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListByOwner retrieves all customers belonging to one owner, most recently
// updated first. The ordering matters: the matcher breaks similarity ties in
// favor of the most recently updated entity.
func (s *CustomerStore) ListByOwner(ctx context.Context, ownerID string) ([]*types.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*types.Customer
	for rows.Next() {
		c := &types.Customer{}
		err := rows.Scan(
			&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.Company,
			&c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

// GetCustomer retrieves a customer by ID.
func (s *CustomerStore) GetCustomer(ctx context.Context, id string) (*types.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE id = $1 AND deleted_at IS NULL`

	return scanCustomer(s.db.QueryRow(ctx, query, id))
}

// CreateCustomer inserts a new customer and returns its generated ID.
func (s *CustomerStore) CreateCustomer(ctx context.Context, customer *types.Customer) (string, error) {
	query := `
		INSERT INTO customers (owner_id, name, email, company, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id string
	err := s.db.QueryRow(ctx, query,
		customer.OwnerID,
		customer.Name,
		customer.Email,
		customer.Company,
		customer.Phone,
		customer.Address,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateCustomer merges the non-nil update fields into an existing customer
// and returns the updated row.
func (s *CustomerStore) UpdateCustomer(ctx context.Context, id string, update *types.CustomerUpdate) (*types.Customer, error) {
	query := `
		UPDATE customers
		SET name = COALESCE($1, name),
			email = COALESCE($2, email),
			company = COALESCE($3, company),
			phone = COALESCE($4, phone),
			address = COALESCE($5, address),
			updated_at = NOW()
		WHERE id = $6 AND deleted_at IS NULL
		RETURNING ` + customerColumns

	return scanCustomer(s.db.QueryRow(ctx, query,
		update.Name,
		update.Email,
		update.Company,
		update.Phone,
		update.Address,
		id,
	))
}
