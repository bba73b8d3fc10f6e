package memstore

import (
	"context"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

type productRepo struct{ s *Store }

func (r productRepo) Insert(ctx context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.products {
		if existing.Slug == product.Slug {
			return store.ErrConflict
		}
	}
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	now := r.s.now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	track(ctx, r.s, "products", r.s.products, product.ID, copyProduct)
	r.s.products[product.ID] = copyProduct(*product)
	product.Normalize()
	return nil
}

func (r productRepo) Get(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	p = copyProduct(p)
	p.Normalize()
	return p, nil
}

func (r productRepo) GetBySlug(_ context.Context, slug string) (models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.products {
		if p.Slug == slug {
			p = copyProduct(p)
			p.Normalize()
			return p, nil
		}
	}
	return models.Product{}, store.ErrNotFound
}

func (r productRepo) List(_ context.Context, filter store.ProductFilter) ([]models.Product, int64, error) {
	r.s.mu.RLock()
	matched := make([]models.Product, 0)
	for _, p := range r.s.products {
		if matchProduct(p, filter) {
			p = copyProduct(p)
			p.Normalize()
			matched = append(matched, p)
		}
	}
	r.s.mu.RUnlock()

	sortProducts(matched, filter.Sort)
	total := int64(len(matched))
	return paginate(matched, filter.Page), total, nil
}

func matchProduct(p models.Product, f store.ProductFilter) bool {
	if !f.IncludeInactive && !p.IsActive {
		return false
	}
	if f.Category != "" && !p.Category.Has(f.Category) {
		return false
	}
	if f.Brand != "" && !containsFold(p.Brand, f.Brand) {
		return false
	}
	if f.FeaturedOnly && !p.IsFeatured {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.Search != "" &&
		!containsFold(p.Title, f.Search) &&
		!containsFold(p.Description, f.Search) &&
		!containsFold(p.Brand, f.Search) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func sortProducts(products []models.Product, key string) {
	if key == "" {
		key = "-createdAt"
	}
	desc := strings.HasPrefix(key, "-")
	field := strings.TrimPrefix(key, "-")

	less := func(a, b models.Product) bool {
		switch field {
		case "price":
			return a.Price < b.Price
		case "rating":
			return a.Rating < b.Rating
		case "title":
			return a.Title < b.Title
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		if desc {
			return less(products[j], products[i])
		}
		return less(products[i], products[j])
	})
}

func (r productRepo) Update(ctx context.Context, id primitive.ObjectID, u store.ProductUpdate) (models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	if u.Slug != nil && *u.Slug != p.Slug {
		for otherID, other := range r.s.products {
			if otherID != id && other.Slug == *u.Slug {
				return models.Product{}, store.ErrConflict
			}
		}
		p.Slug = *u.Slug
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Brand != nil {
		p.Brand = *u.Brand
	}
	if u.Category != nil {
		p.Category = models.NewStringList(*u.Category)
	}
	if u.Images != nil {
		p.Images = append([]string(nil), (*u.Images)...)
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.ClearDiscount {
		p.DiscountPrice = nil
	} else if u.DiscountPrice != nil {
		v := *u.DiscountPrice
		p.DiscountPrice = &v
	}
	if u.StockQuantity != nil {
		p.StockQuantity = *u.StockQuantity
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	if u.IsFeatured != nil {
		p.IsFeatured = *u.IsFeatured
	}
	p.UpdatedAt = r.s.now()
	track(ctx, r.s, "products", r.s.products, id, copyProduct)
	r.s.products[id] = p

	out := copyProduct(p)
	out.Normalize()
	return out, nil
}

func (r productRepo) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	if !p.IsActive || p.StockQuantity < qty {
		return store.ErrInsufficientStock
	}
	p.StockQuantity -= qty
	p.UpdatedAt = r.s.now()
	track(ctx, r.s, "products", r.s.products, id, copyProduct)
	r.s.products[id] = p
	return nil
}

func (r productRepo) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.StockQuantity += qty
	p.UpdatedAt = r.s.now()
	track(ctx, r.s, "products", r.s.products, id, copyProduct)
	r.s.products[id] = p
	return nil
}

func (r productRepo) SetRating(ctx context.Context, id primitive.ObjectID, rating float64, reviewCount int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Rating = rating
	p.ReviewCount = reviewCount
	track(ctx, r.s, "products", r.s.products, id, copyProduct)
	r.s.products[id] = p
	return nil
}

func (r productRepo) Categories(_ context.Context) ([]string, error) {
	return r.distinct(func(p models.Product) []string { return p.Category })
}

func (r productRepo) Brands(_ context.Context) ([]string, error) {
	return r.distinct(func(p models.Product) []string {
		if p.Brand == "" {
			return nil
		}
		return []string{p.Brand}
	})
}

func (r productRepo) distinct(values func(models.Product) []string) ([]string, error) {
	r.s.mu.RLock()
	seen := map[string]struct{}{}
	for _, p := range r.s.products {
		if !p.IsActive {
			continue
		}
		for _, v := range values(p) {
			seen[v] = struct{}{}
		}
	}
	r.s.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
