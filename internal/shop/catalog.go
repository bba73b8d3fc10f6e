package shop

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/store"
)

// ProductCache is an optional read cache for single-product lookups.
type ProductCache interface {
	Get(ctx context.Context, key string) (models.Product, bool)
	Set(ctx context.Context, key string, product models.Product)
	Delete(ctx context.Context, keys ...string)
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (models.Product, bool) { return models.Product{}, false }
func (nopCache) Set(context.Context, string, models.Product)        {}
func (nopCache) Delete(context.Context, ...string)                  {}

// Catalog owns product records and is the only writer of stockQuantity.
type Catalog struct {
	store  store.Store
	cache  ProductCache
	logger *zap.Logger
}

func NewCatalog(st store.Store, cache ProductCache, logger *zap.Logger) *Catalog {
	if cache == nil {
		cache = nopCache{}
	}
	return &Catalog{store: st, cache: cache, logger: logger}
}

func productKey(id primitive.ObjectID) string { return "product:" + id.Hex() }
func slugKey(slug string) string              { return "product:slug:" + slug }

func (c *Catalog) forget(ctx context.Context, products ...models.Product) {
	keys := make([]string, 0, len(products)*2)
	for _, p := range products {
		keys = append(keys, productKey(p.ID))
		if p.Slug != "" {
			keys = append(keys, slugKey(p.Slug))
		}
	}
	c.cache.Delete(ctx, keys...)
}

func (c *Catalog) forgetIDs(ctx context.Context, ids ...primitive.ObjectID) {
	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		p, err := c.store.Products().Get(ctx, id)
		if err != nil {
			products = append(products, models.Product{ID: id})
			continue
		}
		products = append(products, p)
	}
	c.forget(ctx, products...)
}

// Get returns a product by id, including inactive ones.
func (c *Catalog) Get(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	p, err := c.store.Products().Get(ctx, id)
	if err != nil {
		return models.Product{}, translate(err, "product")
	}
	return p, nil
}

// GetByIdentifier resolves an ObjectID hex string or a slug to an active product.
func (c *Catalog) GetByIdentifier(ctx context.Context, identifier string) (models.Product, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return models.Product{}, notFound("product")
	}

	var key string
	id, idErr := primitive.ObjectIDFromHex(identifier)
	if idErr == nil {
		key = productKey(id)
	} else {
		key = slugKey(identifier)
	}
	if p, ok := c.cache.Get(ctx, key); ok {
		return p, nil
	}

	var (
		p   models.Product
		err error
	)
	if idErr == nil {
		p, err = c.store.Products().Get(ctx, id)
	} else {
		p, err = c.store.Products().GetBySlug(ctx, identifier)
	}
	if err != nil {
		return models.Product{}, translate(err, "product")
	}
	if !p.IsActive {
		return models.Product{}, notFound("product")
	}

	c.cache.Set(ctx, key, p)
	return p, nil
}

func (c *Catalog) List(ctx context.Context, filter store.ProductFilter) ([]models.Product, int64, error) {
	if filter.Sort != "" {
		if _, ok := store.ProductSorts[filter.Sort]; !ok {
			return nil, 0, invalid("sort", "unsupported sort "+filter.Sort)
		}
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, 0, invalid("minPrice", "minPrice must not exceed maxPrice")
	}
	products, total, err := c.store.Products().List(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, "products")
	}
	return products, total, nil
}

type ProductInput struct {
	Title         string
	Slug          string
	Description   string
	Brand         string
	Category      []string
	Images        []string
	Price         float64
	DiscountPrice *float64
	StockQuantity int
	IsActive      *bool
	IsFeatured    bool
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

func Slugify(s string) string {
	return strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-"), "-")
}

func (c *Catalog) Create(ctx context.Context, in ProductInput) (models.Product, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Product{}, invalid("title", "title is required")
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return models.Product{}, invalid("slug", "slug is required")
	}
	if in.StockQuantity < 0 {
		return models.Product{}, invalid("stockQuantity", "stockQuantity must not be negative")
	}
	if err := validatePricing(in.Price, in.DiscountPrice); err != nil {
		return models.Product{}, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	images := in.Images
	if images == nil {
		images = []string{}
	}

	p := models.Product{
		Title:         title,
		Slug:          slug,
		Description:   strings.TrimSpace(in.Description),
		Brand:         strings.TrimSpace(in.Brand),
		Category:      models.NewStringList(in.Category),
		Images:        images,
		Price:         in.Price,
		DiscountPrice: in.DiscountPrice,
		StockQuantity: in.StockQuantity,
		IsActive:      active,
		IsFeatured:    in.IsFeatured,
	}
	if err := c.store.Products().Insert(ctx, &p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.Product{}, conflict("slug " + slug + " is already in use")
		}
		return models.Product{}, translate(err, "product")
	}

	c.logger.Info("product created", zap.String("product_id", p.ID.Hex()), zap.String("slug", p.Slug))
	return p, nil
}

// Update applies a partial edit. Price and discount are validated against the
// merged result so a lone price cut cannot leave the discount above the price.
func (c *Catalog) Update(ctx context.Context, id primitive.ObjectID, u store.ProductUpdate) (models.Product, error) {
	if u.Empty() {
		return models.Product{}, invalid("body", "no fields to update")
	}

	existing, err := c.store.Products().Get(ctx, id)
	if err != nil {
		return models.Product{}, translate(err, "product")
	}

	if u.Title != nil {
		t := strings.TrimSpace(*u.Title)
		if t == "" {
			return models.Product{}, invalid("title", "title must not be empty")
		}
		u.Title = &t
	}
	if u.Slug != nil {
		s := Slugify(*u.Slug)
		if s == "" {
			return models.Product{}, invalid("slug", "slug must not be empty")
		}
		u.Slug = &s
	}
	if u.Category != nil {
		categories := []string(models.NewStringList(*u.Category))
		u.Category = &categories
	}
	if u.StockQuantity != nil && *u.StockQuantity < 0 {
		return models.Product{}, invalid("stockQuantity", "stockQuantity must not be negative")
	}

	price := existing.Price
	if u.Price != nil {
		price = *u.Price
	}
	discount := existing.DiscountPrice
	if u.ClearDiscount {
		discount = nil
	} else if u.DiscountPrice != nil {
		discount = u.DiscountPrice
	}
	if err := validatePricing(price, discount); err != nil {
		return models.Product{}, err
	}

	updated, err := c.store.Products().Update(ctx, id, u)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.Product{}, conflict("slug is already in use")
		}
		return models.Product{}, translate(err, "product")
	}

	c.forget(ctx, existing, updated)
	c.logger.Info("product updated", zap.String("product_id", id.Hex()))
	return updated, nil
}

// Deactivate soft-deletes a product. Orders keep referencing it.
func (c *Catalog) Deactivate(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	inactive := false
	p, err := c.store.Products().Update(ctx, id, store.ProductUpdate{IsActive: &inactive})
	if err != nil {
		return models.Product{}, translate(err, "product")
	}
	c.forget(ctx, p)
	c.logger.Info("product deactivated", zap.String("product_id", id.Hex()))
	return p, nil
}

// DecrementStock subtracts qty in one conditional write. It is not idempotent:
// every successful call removes qty units.
func (c *Catalog) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	if qty < 1 {
		return invalid("quantity", "quantity must be at least 1")
	}
	err := c.store.Products().DecrementStock(ctx, id, qty)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrInsufficientStock):
		p, getErr := c.store.Products().Get(ctx, id)
		if getErr != nil {
			return insufficientStock(id, "", 0, qty)
		}
		available := p.StockQuantity
		if !p.IsActive {
			available = 0
		}
		return insufficientStock(id, p.Title, available, qty)
	default:
		return translate(err, "product")
	}
}

func (c *Catalog) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	if qty < 1 {
		return invalid("quantity", "quantity must be at least 1")
	}
	return translate(c.store.Products().IncrementStock(ctx, id, qty), "product")
}

// Categories lists the distinct category names used by active products.
func (c *Catalog) Categories(ctx context.Context) ([]string, error) {
	values, err := c.store.Products().Categories(ctx)
	if err != nil {
		return nil, translate(err, "categories")
	}
	return values, nil
}

func (c *Catalog) Brands(ctx context.Context) ([]string, error) {
	values, err := c.store.Products().Brands(ctx)
	if err != nil {
		return nil, translate(err, "brands")
	}
	return values, nil
}
