// Package mongostore implements store.Store on MongoDB. Multi-document writes
// run inside a session transaction, so the deployment must be a replica set.
package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/store"
)

const (
	productsCollection   = "products"
	categoriesCollection = "categories"
	cartsCollection      = "carts"
	ordersCollection     = "orders"
	reviewsCollection    = "reviews"
	wishlistsCollection  = "wishlists"
)

type Store struct {
	db *mongo.Database
}

var _ store.Store = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Products() store.Products { return productRepo{s.db.Collection(productsCollection)} }
func (s *Store) Categories() store.Categories {
	return categoryRepo{s.db.Collection(categoriesCollection)}
}
func (s *Store) Carts() store.Carts     { return cartRepo{s.db.Collection(cartsCollection)} }
func (s *Store) Orders() store.Orders   { return orderRepo{s.db.Collection(ordersCollection)} }
func (s *Store) Reviews() store.Reviews { return reviewRepo{s.db.Collection(reviewsCollection)} }
func (s *Store) Wishlists() store.Wishlists {
	return wishlistRepo{s.db.Collection(wishlistsCollection)}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// WithTransaction runs fn inside a session transaction. The driver may call fn
// more than once on transient errors, so fn must not keep state between runs.
// A ctx that already carries a session joins the running transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrConflict
	default:
		return err
	}
}
