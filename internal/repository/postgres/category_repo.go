package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"employeetraining/internal/domain"
)

const uniqueViolation = "23505"

type categoryRepository struct {
	DB *sql.DB
}

func NewCategoryRepository(db *sql.DB) domain.CategoryRepository {
	return &categoryRepository{DB: db}
}

const categorySelect = `
	SELECT c.id, c.name, c.description, c.created_by, c.created_on, c.updated_by, c.updated_on,
		EXISTS (SELECT 1 FROM events e WHERE e.category_id = c.id AND e.is_removed = FALSE) AS is_in_use
	FROM categories c
`

func scanCategories(rows *sql.Rows) ([]*domain.Category, error) {
	defer rows.Close()
	out := make([]*domain.Category, 0)
	for rows.Next() {
		c := &domain.Category{}
		var updatedBy sql.NullString
		var updatedOn sql.NullTime
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedBy, &c.CreatedOn, &updatedBy, &updatedOn, &c.IsInUse); err != nil {
			return nil, err
		}
		if updatedBy.Valid {
			c.UpdatedBy = updatedBy.String
		}
		if updatedOn.Valid {
			c.UpdatedOn = &updatedOn.Time
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *categoryRepository) Create(ctx context.Context, c *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, description, created_by, created_on)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.DB.ExecContext(ctx, query, c.ID, c.Name, c.Description, c.CreatedBy, c.CreatedOn)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrConflict
	}
	return err
}

func (r *categoryRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Category, error) {
	if len(ids) == 0 {
		return []*domain.Category{}, nil
	}
	rows, err := r.DB.QueryContext(ctx, categorySelect+` WHERE c.id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.DB.QueryContext(ctx, categorySelect+` ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

func (r *categoryRepository) Update(ctx context.Context, c *domain.Category) error {
	query := `
		UPDATE categories SET name = $1, description = $2, updated_by = $3, updated_on = $4
		WHERE id = $5
	`
	result, err := r.DB.ExecContext(ctx, query, c.Name, c.Description, nullString(c.UpdatedBy), nullTime(c.UpdatedOn), c.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrConflict
		}
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a category unless an event still references it.
func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM categories c
		WHERE c.id = $1
		AND NOT EXISTS (SELECT 1 FROM events e WHERE e.category_id = c.id AND e.is_removed = FALSE)
	`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return domain.ErrConflict
		}
		return domain.ErrNotFound
	}
	return nil
}
