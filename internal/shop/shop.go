// Package shop holds the storefront domain services: catalog stock, carts,
// the order workflow, review aggregation and wishlists. Services depend on a
// store.Store and never on a concrete database.
package shop

import (
	"go.uber.org/zap"

	"storefront/internal/events"
	"storefront/internal/store"
)

type Services struct {
	Catalog    *Catalog
	Categories *Categories
	Carts      *Carts
	Orders     *Orders
	Reviews    *Reviews
	Wishlists  *Wishlists
}

func New(st store.Store, cache ProductCache, publisher events.Publisher, logger *zap.Logger) *Services {
	catalog := NewCatalog(st, cache, logger.Named("catalog"))
	return &Services{
		Catalog:    catalog,
		Categories: NewCategories(st, logger.Named("categories")),
		Carts:      NewCarts(st, catalog, logger.Named("cart")),
		Orders:     NewOrders(st, catalog, publisher, logger.Named("orders")),
		Reviews:    NewReviews(st, catalog, logger.Named("reviews")),
		Wishlists:  NewWishlists(st, catalog),
	}
}
