// Package store defines the persistence boundary used by the shop services.
// Two implementations exist: mongostore (MongoDB) and memstore (process memory).
// Callers receive a Store and never branch on which one is active.
package store

import (
	"context"
	"errors"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	// ErrStaleState is returned by conditional updates whose precondition no longer holds.
	ErrStaleState = errors.New("stale state")
)

type Store interface {
	Products() Products
	Categories() Categories
	Carts() Carts
	Orders() Orders
	Reviews() Reviews
	Wishlists() Wishlists

	// WithTransaction runs fn so that every write made through the ctx it
	// receives is applied together or not at all.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
}

type Page struct {
	Page  int64
	Limit int64
}

// Skip returns the number of documents to skip; zero Limit means "no paging".
// A page too large to address saturates at math.MaxInt64.
func (p Page) Skip() int64 {
	if p.Limit <= 0 || p.Page <= 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt64/p.Limit {
		return math.MaxInt64
	}
	return (p.Page - 1) * p.Limit
}

type ProductFilter struct {
	Category        string
	Brand           string
	Search          string
	MinPrice        *float64
	MaxPrice        *float64
	FeaturedOnly    bool
	IncludeInactive bool
	Sort            string
	Page
}

var ProductSorts = map[string]struct{}{
	"price": {}, "-price": {},
	"rating": {}, "-rating": {},
	"createdAt": {}, "-createdAt": {},
	"title": {}, "-title": {},
}

// ProductUpdate carries a partial admin edit; nil fields are left untouched.
type ProductUpdate struct {
	Title         *string
	Slug          *string
	Description   *string
	Brand         *string
	Category      *[]string
	Images        *[]string
	Price         *float64
	DiscountPrice *float64
	ClearDiscount bool
	StockQuantity *int
	IsActive      *bool
	IsFeatured    *bool
}

func (u ProductUpdate) Empty() bool {
	return u.Title == nil && u.Slug == nil && u.Description == nil && u.Brand == nil &&
		u.Category == nil && u.Images == nil && u.Price == nil && u.DiscountPrice == nil &&
		!u.ClearDiscount && u.StockQuantity == nil && u.IsActive == nil && u.IsFeatured == nil
}

type Products interface {
	Insert(ctx context.Context, product *models.Product) error
	Get(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	GetBySlug(ctx context.Context, slug string) (models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, update ProductUpdate) (models.Product, error)
	// DecrementStock subtracts qty only while stockQuantity >= qty on an active product.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	SetRating(ctx context.Context, id primitive.ObjectID, rating float64, reviewCount int) error
	// Categories and Brands return the distinct values found on active products.
	Categories(ctx context.Context) ([]string, error)
	Brands(ctx context.Context) ([]string, error)
}

// CategoryUpdate carries a partial admin edit; nil fields are left untouched.
type CategoryUpdate struct {
	Name        *string
	NameNp      *string
	Slug        *string
	Description *string
	Image       *string
	ParentID    *primitive.ObjectID
	ClearParent bool
	IsActive    *bool
	SortOrder   *int
}

type Categories interface {
	// Insert fails with ErrConflict when the slug is taken.
	Insert(ctx context.Context, category *models.Category) error
	Get(ctx context.Context, id primitive.ObjectID) (models.Category, error)
	GetBySlug(ctx context.Context, slug string) (models.Category, error)
	// List returns categories ordered by sortOrder, then name.
	List(ctx context.Context, activeOnly bool) ([]models.Category, error)
	Update(ctx context.Context, id primitive.ObjectID, update CategoryUpdate) (models.Category, error)
	HasActiveChildren(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type Carts interface {
	Get(ctx context.Context, userID primitive.ObjectID) (models.Cart, error)
	// Save upserts the cart keyed by its UserID.
	Save(ctx context.Context, cart *models.Cart) error
}

type OrderFilter struct {
	UserID *primitive.ObjectID
	Status models.OrderStatus
	Search string
	Page
}

type Orders interface {
	Insert(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id primitive.ObjectID) (models.Order, error)
	GetForUser(ctx context.Context, userID, id primitive.ObjectID) (models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	// TransitionStatus moves the order from one status to another and fails
	// with ErrStaleState when the current status is not from.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus) (models.Order, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus, trackingNumber string) (models.Order, error)
	// ClearStockDecremented flips stockDecremented from true to false, returning
	// ErrStaleState when it was already false.
	ClearStockDecremented(ctx context.Context, id primitive.ObjectID) error
	SetPaymentSession(ctx context.Context, id primitive.ObjectID, sessionID string) (models.Order, error)
	HasDelivered(ctx context.Context, userID, productID primitive.ObjectID) (bool, error)
}

type ReviewFilter struct {
	ProductID *primitive.ObjectID
	Approved  *bool
	Rating    int
	Page
}

type Reviews interface {
	Insert(ctx context.Context, review *models.Review) error
	Get(ctx context.Context, id primitive.ObjectID) (models.Review, error)
	Replace(ctx context.Context, review models.Review) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	IncrementHelpful(ctx context.Context, id primitive.ObjectID) (models.Review, error)
	SetApproved(ctx context.Context, id primitive.ObjectID, approved bool) (models.Review, error)
	List(ctx context.Context, filter ReviewFilter) ([]models.Review, int64, error)
}

type Wishlists interface {
	Get(ctx context.Context, userID primitive.ObjectID) (models.Wishlist, error)
	Save(ctx context.Context, wishlist *models.Wishlist) error
}
