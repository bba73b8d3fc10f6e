package shop

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/store"
)

const (
	maxCategoryName        = 100
	maxCategoryDescription = 500
)

type CategoryInput struct {
	Name        string
	NameNp      string
	Slug        string
	Description string
	Image       string
	ParentID    *primitive.ObjectID
	SortOrder   int
	IsActive    *bool
}

// Categories manages the browsable category tree. Deleting only deactivates.
type Categories struct {
	store  store.Store
	logger *zap.Logger
}

func NewCategories(st store.Store, logger *zap.Logger) *Categories {
	return &Categories{store: st, logger: logger}
}

// List returns active categories ordered by sortOrder, then name.
func (s *Categories) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.store.Categories().List(ctx, true)
	if err != nil {
		return nil, translate(err, "categories")
	}
	return categories, nil
}

func (s *Categories) GetBySlug(ctx context.Context, slug string) (models.Category, error) {
	c, err := s.store.Categories().GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return models.Category{}, translate(err, "category")
	}
	if !c.IsActive {
		return models.Category{}, notFound("category")
	}
	return c, nil
}

func validateCategoryText(name, nameNp, description string) error {
	switch {
	case name == "":
		return invalid("name", "name is required")
	case utf8.RuneCountInString(name) > maxCategoryName:
		return invalid("name", "name must be at most 100 characters")
	case utf8.RuneCountInString(nameNp) > maxCategoryName:
		return invalid("nameNp", "nameNp must be at most 100 characters")
	case utf8.RuneCountInString(description) > maxCategoryDescription:
		return invalid("description", "description must be at most 500 characters")
	}
	return nil
}

func (s *Categories) requireParent(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.store.Categories().Get(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("parent category")
		}
		return translate(err, "category")
	}
	return nil
}

func (s *Categories) Create(ctx context.Context, in CategoryInput) (models.Category, error) {
	name := strings.TrimSpace(in.Name)
	nameNp := strings.TrimSpace(in.NameNp)
	description := strings.TrimSpace(in.Description)
	if err := validateCategoryText(name, nameNp, description); err != nil {
		return models.Category{}, err
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		return models.Category{}, invalid("slug", "slug is required")
	}
	if in.ParentID != nil {
		if err := s.requireParent(ctx, *in.ParentID); err != nil {
			return models.Category{}, err
		}
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	c := models.Category{
		Name:        name,
		NameNp:      nameNp,
		Slug:        slug,
		Description: description,
		Image:       strings.TrimSpace(in.Image),
		ParentID:    in.ParentID,
		IsActive:    active,
		SortOrder:   in.SortOrder,
	}
	if err := s.store.Categories().Insert(ctx, &c); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.Category{}, conflict("category with this slug already exists")
		}
		return models.Category{}, translate(err, "category")
	}

	s.logger.Info("category created", zap.String("category_id", c.ID.Hex()), zap.String("slug", c.Slug))
	return c, nil
}

func (s *Categories) Update(ctx context.Context, id primitive.ObjectID, u store.CategoryUpdate) (models.Category, error) {
	existing, err := s.store.Categories().Get(ctx, id)
	if err != nil {
		return models.Category{}, translate(err, "category")
	}

	name, nameNp, description := existing.Name, existing.NameNp, existing.Description
	if u.Name != nil {
		name = strings.TrimSpace(*u.Name)
		u.Name = &name
	}
	if u.NameNp != nil {
		nameNp = strings.TrimSpace(*u.NameNp)
		u.NameNp = &nameNp
	}
	if u.Description != nil {
		description = strings.TrimSpace(*u.Description)
		u.Description = &description
	}
	if err := validateCategoryText(name, nameNp, description); err != nil {
		return models.Category{}, err
	}
	if u.Slug != nil {
		slug := Slugify(*u.Slug)
		if slug == "" {
			return models.Category{}, invalid("slug", "slug must not be empty")
		}
		u.Slug = &slug
	}
	if u.ParentID != nil && !u.ClearParent {
		if *u.ParentID == id {
			return models.Category{}, invalid("parentId", "category cannot be its own parent")
		}
		if err := s.requireParent(ctx, *u.ParentID); err != nil {
			return models.Category{}, err
		}
	}

	updated, err := s.store.Categories().Update(ctx, id, u)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.Category{}, conflict("category with this slug already exists")
		}
		return models.Category{}, translate(err, "category")
	}
	s.logger.Info("category updated", zap.String("category_id", id.Hex()))
	return updated, nil
}

// Deactivate soft-deletes a category that has no active children.
func (s *Categories) Deactivate(ctx context.Context, id primitive.ObjectID) (models.Category, error) {
	if _, err := s.store.Categories().Get(ctx, id); err != nil {
		return models.Category{}, translate(err, "category")
	}
	hasChildren, err := s.store.Categories().HasActiveChildren(ctx, id)
	if err != nil {
		return models.Category{}, translate(err, "category")
	}
	if hasChildren {
		return models.Category{}, invalid("id", "cannot delete category with child categories")
	}

	inactive := false
	c, err := s.store.Categories().Update(ctx, id, store.CategoryUpdate{IsActive: &inactive})
	if err != nil {
		return models.Category{}, translate(err, "category")
	}
	s.logger.Info("category deactivated", zap.String("category_id", id.Hex()))
	return c, nil
}
