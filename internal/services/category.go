package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"employeetraining/internal/domain"
)

const (
	categoryNameMaxLength        = 100
	categoryDescriptionMaxLength = 300
)

type categoryService struct {
	repo   domain.CategoryRepository
	names  *cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewCategoryService returns a CategoryService whose category names are cached for ttl.
func NewCategoryService(repo domain.CategoryRepository, ttl time.Duration, logger *slog.Logger) domain.CategoryService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &categoryService{
		repo:   repo,
		names:  cache.New(ttl, 2*ttl),
		logger: logger,
		now:    time.Now,
	}
}

// ValidateCategory returns the validation messages for a category name and description.
func ValidateCategory(name, description string) []string {
	var errs []string
	if strings.TrimSpace(name) == "" {
		errs = append(errs, "name is required")
	} else if utf8.RuneCountInString(name) > categoryNameMaxLength {
		errs = append(errs, fmt.Sprintf("name must be at most %d characters", categoryNameMaxLength))
	}
	if utf8.RuneCountInString(description) > categoryDescriptionMaxLength {
		errs = append(errs, fmt.Sprintf("description must be at most %d characters", categoryDescriptionMaxLength))
	}
	return errs
}

func (s *categoryService) CreateCategory(ctx context.Context, c *domain.Category, createdBy string) error {
	c.Name = strings.TrimSpace(c.Name)
	if err := domain.NewValidationError(ValidateCategory(c.Name, c.Description)); err != nil {
		return err
	}
	c.ID = uuid.NewString()
	c.CreatedBy = createdBy
	c.CreatedOn = s.now().UTC()
	c.IsInUse = false
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create category: %w", err)
	}
	s.names.Set(c.ID, c.Name, cache.DefaultExpiration)
	return nil
}

func (s *categoryService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	cats, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if cats == nil {
		cats = []*domain.Category{}
	}
	return cats, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, id, name, description, updatedBy string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if err := domain.NewValidationError(ValidateCategory(name, description)); err != nil {
		return nil, err
	}
	found, err := s.repo.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if len(found) == 0 {
		return nil, domain.ErrNotFound
	}
	c := found[0]
	now := s.now().UTC()
	c.Name = name
	c.Description = description
	c.UpdatedBy = updatedBy
	c.UpdatedOn = &now
	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	s.names.Set(c.ID, c.Name, cache.DefaultExpiration)
	return c, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
			return err
		}
		return fmt.Errorf("delete category: %w", err)
	}
	s.names.Delete(id)
	return nil
}

func (s *categoryService) Enrich(ctx context.Context, events []*domain.Event) ([]*domain.Event, error) {
	var missing []string
	seen := make(map[string]struct{})
	for _, e := range events {
		if e == nil || e.CategoryID == "" {
			continue
		}
		if _, ok := seen[e.CategoryID]; ok {
			continue
		}
		seen[e.CategoryID] = struct{}{}
		if _, ok := s.names.Get(e.CategoryID); !ok {
			missing = append(missing, e.CategoryID)
		}
	}
	if len(missing) > 0 {
		cats, err := s.repo.GetByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("get categories: %w", err)
		}
		for _, c := range cats {
			s.names.Set(c.ID, c.Name, cache.DefaultExpiration)
		}
	}

	out := make([]*domain.Event, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		cp := *e
		if name, ok := s.names.Get(e.CategoryID); ok {
			cp.CategoryName = name.(string)
		}
		out = append(out, &cp)
	}
	return out, nil
}
