package memstore

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

type categoryRepo struct{ s *Store }

func copyCategory(c models.Category) models.Category {
	if c.ParentID != nil {
		id := *c.ParentID
		c.ParentID = &id
	}
	return c
}

func (r categoryRepo) Insert(ctx context.Context, category *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.categories {
		if existing.Slug == category.Slug {
			return store.ErrConflict
		}
	}
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	now := r.s.now()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = now
	track(ctx, r.s, "categories", r.s.categories, category.ID, copyCategory)
	r.s.categories[category.ID] = copyCategory(*category)
	return nil
}

func (r categoryRepo) Get(_ context.Context, id primitive.ObjectID) (models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[id]
	if !ok {
		return models.Category{}, store.ErrNotFound
	}
	return copyCategory(c), nil
}

func (r categoryRepo) GetBySlug(_ context.Context, slug string) (models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.categories {
		if c.Slug == slug {
			return copyCategory(c), nil
		}
	}
	return models.Category{}, store.ErrNotFound
}

func (r categoryRepo) List(_ context.Context, activeOnly bool) ([]models.Category, error) {
	r.s.mu.RLock()
	out := make([]models.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, copyCategory(c))
	}
	r.s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r categoryRepo) Update(ctx context.Context, id primitive.ObjectID, u store.CategoryUpdate) (models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.categories[id]
	if !ok {
		return models.Category{}, store.ErrNotFound
	}
	if u.Slug != nil && *u.Slug != c.Slug {
		for otherID, other := range r.s.categories {
			if otherID != id && other.Slug == *u.Slug {
				return models.Category{}, store.ErrConflict
			}
		}
		c.Slug = *u.Slug
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.NameNp != nil {
		c.NameNp = *u.NameNp
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.Image != nil {
		c.Image = *u.Image
	}
	if u.ClearParent {
		c.ParentID = nil
	} else if u.ParentID != nil {
		parent := *u.ParentID
		c.ParentID = &parent
	}
	if u.IsActive != nil {
		c.IsActive = *u.IsActive
	}
	if u.SortOrder != nil {
		c.SortOrder = *u.SortOrder
	}
	c.UpdatedAt = r.s.now()
	track(ctx, r.s, "categories", r.s.categories, id, copyCategory)
	r.s.categories[id] = c
	return copyCategory(c), nil
}

func (r categoryRepo) HasActiveChildren(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.categories {
		if c.IsActive && c.ParentID != nil && *c.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}
