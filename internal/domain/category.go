package domain

import (
	"context"
	"time"
)

// Category groups training events.
// swagger:model Category
type Category struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IsInUse     bool       `json:"is_in_use"`
	CreatedBy   string     `json:"created_by"`
	CreatedOn   time.Time  `json:"created_on"`
	UpdatedBy   string     `json:"updated_by,omitempty"`
	UpdatedOn   *time.Time `json:"updated_on,omitempty"`
}

// CategoryRepository defines storage for categories.
type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	GetByIDs(ctx context.Context, ids []string) ([]*Category, error)
	List(ctx context.Context) ([]*Category, error)
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) error
}

// CategoryService defines category management and enrichment.
type CategoryService interface {
	CreateCategory(ctx context.Context, c *Category, createdBy string) error
	ListCategories(ctx context.Context) ([]*Category, error)
	UpdateCategory(ctx context.Context, id, name, description, updatedBy string) (*Category, error)
	DeleteCategory(ctx context.Context, id string) error
	// Enrich returns copies of events with CategoryName resolved. The inputs are not modified.
	Enrich(ctx context.Context, events []*Event) ([]*Event, error)
}
