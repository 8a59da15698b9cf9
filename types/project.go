package types

import "time"

// Project is a durable business entity linked to a customer.
type Project struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	CustomerID  string     `json:"customerId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ProjectUpdate carries partial field updates for a merge. Nil fields are
// left untouched.
type ProjectUpdate struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}
