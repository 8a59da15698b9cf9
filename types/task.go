package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Task is a durable work item linked to a project. Position preserves the
// order the task appeared in the source document.
type Task struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerId"`
	ProjectID   string          `json:"projectId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Hours       decimal.Decimal `json:"hours"`
	Rate        decimal.Decimal `json:"rate"`
	Position    int             `json:"position"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
