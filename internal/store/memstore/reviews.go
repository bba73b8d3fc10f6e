package memstore

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

type reviewRepo struct{ s *Store }

func (r reviewRepo) Insert(ctx context.Context, review *models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.reviews {
		if existing.ProductID == review.ProductID && existing.UserID == review.UserID {
			return store.ErrConflict
		}
	}
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	now := r.s.now()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now
	track(ctx, r.s, "reviews", r.s.reviews, review.ID, same[models.Review])
	r.s.reviews[review.ID] = *review
	return nil
}

func (r reviewRepo) Get(_ context.Context, id primitive.ObjectID) (models.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	review, ok := r.s.reviews[id]
	if !ok {
		return models.Review{}, store.ErrNotFound
	}
	return review, nil
}

func (r reviewRepo) Replace(ctx context.Context, review models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reviews[review.ID]; !ok {
		return store.ErrNotFound
	}
	review.UpdatedAt = r.s.now()
	track(ctx, r.s, "reviews", r.s.reviews, review.ID, same[models.Review])
	r.s.reviews[review.ID] = review
	return nil
}

func (r reviewRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reviews[id]; !ok {
		return store.ErrNotFound
	}
	track(ctx, r.s, "reviews", r.s.reviews, id, same[models.Review])
	delete(r.s.reviews, id)
	return nil
}

func (r reviewRepo) IncrementHelpful(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	review, ok := r.s.reviews[id]
	if !ok {
		return models.Review{}, store.ErrNotFound
	}
	review.HelpfulCount++
	track(ctx, r.s, "reviews", r.s.reviews, id, same[models.Review])
	r.s.reviews[id] = review
	return review, nil
}

func (r reviewRepo) SetApproved(ctx context.Context, id primitive.ObjectID, approved bool) (models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	review, ok := r.s.reviews[id]
	if !ok {
		return models.Review{}, store.ErrNotFound
	}
	review.IsApproved = approved
	review.UpdatedAt = r.s.now()
	track(ctx, r.s, "reviews", r.s.reviews, id, same[models.Review])
	r.s.reviews[id] = review
	return review, nil
}

func (r reviewRepo) List(_ context.Context, filter store.ReviewFilter) ([]models.Review, int64, error) {
	r.s.mu.RLock()
	matched := make([]models.Review, 0)
	for _, review := range r.s.reviews {
		if filter.ProductID != nil && review.ProductID != *filter.ProductID {
			continue
		}
		if filter.Approved != nil && review.IsApproved != *filter.Approved {
			continue
		}
		if filter.Rating != 0 && review.Rating != filter.Rating {
			continue
		}
		matched = append(matched, review)
	}
	r.s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	return paginate(matched, filter.Page), total, nil
}

type wishlistRepo struct{ s *Store }

func (r wishlistRepo) Get(_ context.Context, userID primitive.ObjectID) (models.Wishlist, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	w, ok := r.s.wishlists[userID]
	if !ok {
		return models.Wishlist{}, store.ErrNotFound
	}
	return copyWishlist(w), nil
}

func (r wishlistRepo) Save(ctx context.Context, w *models.Wishlist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	if existing, ok := r.s.wishlists[w.UserID]; ok {
		w.ID = existing.ID
		w.CreatedAt = existing.CreatedAt
	}
	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	if w.Items == nil {
		w.Items = []models.WishlistItem{}
	}
	w.UpdatedAt = now
	track(ctx, r.s, "wishlists", r.s.wishlists, w.UserID, copyWishlist)
	r.s.wishlists[w.UserID] = copyWishlist(*w)
	return nil
}
