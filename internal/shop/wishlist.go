package shop

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

type WishlistLine struct {
	ProductID primitive.ObjectID `json:"productId"`
	AddedAt   time.Time          `json:"addedAt"`
	Product   *models.Product    `json:"product,omitempty"`
}

type WishlistView struct {
	ID     primitive.ObjectID `json:"id"`
	UserID primitive.ObjectID `json:"userId"`
	Items  []WishlistLine     `json:"items"`
}

type Wishlists struct {
	store   store.Store
	catalog *Catalog
	now     func() time.Time
}

func NewWishlists(st store.Store, catalog *Catalog) *Wishlists {
	return &Wishlists{store: st, catalog: catalog, now: time.Now}
}

func (s *Wishlists) view(ctx context.Context, w models.Wishlist) (WishlistView, error) {
	v := WishlistView{ID: w.ID, UserID: w.UserID, Items: make([]WishlistLine, 0, len(w.Items))}
	for _, item := range w.Items {
		line := WishlistLine{ProductID: item.ProductID, AddedAt: item.AddedAt}
		p, err := s.store.Products().Get(ctx, item.ProductID)
		switch {
		case err == nil:
			line.Product = &p
		case !errors.Is(err, store.ErrNotFound):
			return WishlistView{}, translate(err, "product")
		}
		v.Items = append(v.Items, line)
	}
	return v, nil
}

func (s *Wishlists) load(ctx context.Context, userID primitive.ObjectID, create bool) (models.Wishlist, error) {
	w, err := s.store.Wishlists().Get(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.Wishlist{}, translate(err, "wishlist")
	}
	if !create {
		return models.Wishlist{}, notFound("wishlist")
	}
	w = models.Wishlist{UserID: userID, Items: []models.WishlistItem{}}
	if err := s.store.Wishlists().Save(ctx, &w); err != nil {
		return models.Wishlist{}, translate(err, "wishlist")
	}
	return w, nil
}

func (s *Wishlists) Get(ctx context.Context, userID primitive.ObjectID) (WishlistView, error) {
	w, err := s.load(ctx, userID, true)
	if err != nil {
		return WishlistView{}, err
	}
	return s.view(ctx, w)
}

func (s *Wishlists) Add(ctx context.Context, userID, productID primitive.ObjectID) (WishlistView, error) {
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return WishlistView{}, err
	}
	if !p.IsActive {
		return WishlistView{}, notFound("product")
	}

	w, err := s.load(ctx, userID, true)
	if err != nil {
		return WishlistView{}, err
	}
	if w.Contains(productID) {
		return WishlistView{}, conflict("product is already in wishlist")
	}
	w.Items = append(w.Items, models.WishlistItem{ProductID: productID, AddedAt: s.now().UTC()})
	if err := s.store.Wishlists().Save(ctx, &w); err != nil {
		return WishlistView{}, translate(err, "wishlist")
	}
	return s.view(ctx, w)
}

func (s *Wishlists) Remove(ctx context.Context, userID, productID primitive.ObjectID) (WishlistView, error) {
	w, err := s.load(ctx, userID, false)
	if err != nil {
		return WishlistView{}, err
	}
	kept := w.Items[:0]
	for _, item := range w.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	w.Items = kept
	if err := s.store.Wishlists().Save(ctx, &w); err != nil {
		return WishlistView{}, translate(err, "wishlist")
	}
	return s.view(ctx, w)
}

func (s *Wishlists) Clear(ctx context.Context, userID primitive.ObjectID) (WishlistView, error) {
	w, err := s.load(ctx, userID, false)
	if err != nil {
		return WishlistView{}, err
	}
	w.Items = []models.WishlistItem{}
	if err := s.store.Wishlists().Save(ctx, &w); err != nil {
		return WishlistView{}, translate(err, "wishlist")
	}
	return s.view(ctx, w)
}

// Contains reports whether productID is on the user's wishlist. A user without
// a wishlist simply has nothing on it.
func (s *Wishlists) Contains(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	w, err := s.store.Wishlists().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, translate(err, "wishlist")
	}
	return w.Contains(productID), nil
}
