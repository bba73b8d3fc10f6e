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

const maxCommentLength = 1000

type ReviewStats struct {
	AverageRating float64     `json:"averageRating"`
	TotalReviews  int         `json:"totalReviews"`
	Distribution  map[int]int `json:"ratingDistribution"`
}

type Reviews struct {
	store   store.Store
	catalog *Catalog
	logger  *zap.Logger
}

func NewReviews(st store.Store, catalog *Catalog, logger *zap.Logger) *Reviews {
	return &Reviews{store: st, catalog: catalog, logger: logger}
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return invalid("rating", "rating must be between 1 and 5")
	}
	return nil
}

func normalizeComment(comment string) (string, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return "", invalid("comment", "comment is required")
	}
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return "", invalid("comment", "comment must be at most 1000 characters")
	}
	return comment, nil
}

func (s *Reviews) approved(ctx context.Context, productID primitive.ObjectID) ([]models.Review, error) {
	approved := true
	reviews, _, err := s.store.Reviews().List(ctx, store.ReviewFilter{ProductID: &productID, Approved: &approved})
	if err != nil {
		return nil, translate(err, "reviews")
	}
	return reviews, nil
}

// Recompute rebuilds rating and reviewCount from every approved review of the
// product. Calling it twice without review changes stores the same values.
func (s *Reviews) Recompute(ctx context.Context, productID primitive.ObjectID) (float64, int, error) {
	reviews, err := s.approved(ctx, productID)
	if err != nil {
		return 0, 0, err
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	rating := roundRating(sum, len(reviews))
	if err := s.store.Products().SetRating(ctx, productID, rating, len(reviews)); err != nil {
		return 0, 0, translate(err, "product")
	}
	return rating, len(reviews), nil
}

// Create adds the user's review of an active product. A user reviews a product once.
func (s *Reviews) Create(ctx context.Context, userID, productID primitive.ObjectID, rating int, comment string) (models.Review, error) {
	if err := validateRating(rating); err != nil {
		return models.Review{}, err
	}
	comment, err := normalizeComment(comment)
	if err != nil {
		return models.Review{}, err
	}

	var review models.Review
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := s.store.Products().Get(ctx, productID)
		if err != nil {
			return translate(err, "product")
		}
		if !p.IsActive {
			return notFound("product")
		}

		verified, err := s.store.Orders().HasDelivered(ctx, userID, productID)
		if err != nil {
			return translate(err, "orders")
		}

		review = models.Review{
			ProductID:          productID,
			UserID:             userID,
			Rating:             rating,
			Comment:            comment,
			IsVerifiedPurchase: verified,
			IsApproved:         true,
		}
		if err := s.store.Reviews().Insert(ctx, &review); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return conflict("you have already reviewed this product")
			}
			return translate(err, "review")
		}
		_, _, err = s.Recompute(ctx, productID)
		return err
	})
	if err != nil {
		return models.Review{}, err
	}

	s.catalog.forgetIDs(ctx, productID)
	s.logger.Info("review created",
		zap.String("review_id", review.ID.Hex()),
		zap.String("product_id", productID.Hex()),
		zap.Bool("verified_purchase", review.IsVerifiedPurchase),
	)
	return review, nil
}

func (s *Reviews) owned(ctx context.Context, userID, reviewID primitive.ObjectID) (models.Review, error) {
	review, err := s.store.Reviews().Get(ctx, reviewID)
	if err != nil {
		return models.Review{}, translate(err, "review")
	}
	if review.UserID != userID {
		return models.Review{}, notFound("review")
	}
	return review, nil
}

// Update edits the owner's review; nil fields are kept.
func (s *Reviews) Update(ctx context.Context, userID, reviewID primitive.ObjectID, rating *int, comment *string) (models.Review, error) {
	if rating == nil && comment == nil {
		return models.Review{}, invalid("body", "rating or comment is required")
	}
	if rating != nil {
		if err := validateRating(*rating); err != nil {
			return models.Review{}, err
		}
	}
	var text string
	if comment != nil {
		var err error
		if text, err = normalizeComment(*comment); err != nil {
			return models.Review{}, err
		}
	}

	var review models.Review
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		review, err = s.owned(ctx, userID, reviewID)
		if err != nil {
			return err
		}
		if rating != nil {
			review.Rating = *rating
		}
		if comment != nil {
			review.Comment = text
		}
		if err := s.store.Reviews().Replace(ctx, review); err != nil {
			return translate(err, "review")
		}
		_, _, err = s.Recompute(ctx, review.ProductID)
		return err
	})
	if err != nil {
		return models.Review{}, err
	}
	s.catalog.forgetIDs(ctx, review.ProductID)
	return review, nil
}

func (s *Reviews) Delete(ctx context.Context, userID, reviewID primitive.ObjectID) error {
	var productID primitive.ObjectID
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		review, err := s.owned(ctx, userID, reviewID)
		if err != nil {
			return err
		}
		productID = review.ProductID
		if err := s.store.Reviews().Delete(ctx, reviewID); err != nil {
			return translate(err, "review")
		}
		_, _, err = s.Recompute(ctx, productID)
		return err
	})
	if err != nil {
		return err
	}
	s.catalog.forgetIDs(ctx, productID)
	return nil
}

func (s *Reviews) MarkHelpful(ctx context.Context, reviewID primitive.ObjectID) (models.Review, error) {
	review, err := s.store.Reviews().IncrementHelpful(ctx, reviewID)
	if err != nil {
		return models.Review{}, translate(err, "review")
	}
	return review, nil
}

// SetApproval toggles moderation state and refreshes the product aggregate.
func (s *Reviews) SetApproval(ctx context.Context, reviewID primitive.ObjectID, approved bool) (models.Review, error) {
	var review models.Review
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		review, err = s.store.Reviews().SetApproved(ctx, reviewID, approved)
		if err != nil {
			return translate(err, "review")
		}
		_, _, err = s.Recompute(ctx, review.ProductID)
		return err
	})
	if err != nil {
		return models.Review{}, err
	}
	s.catalog.forgetIDs(ctx, review.ProductID)
	s.logger.Info("review moderated", zap.String("review_id", reviewID.Hex()), zap.Bool("approved", approved))
	return review, nil
}

// ListForProduct returns a page of approved reviews and stats over all of them.
func (s *Reviews) ListForProduct(ctx context.Context, productID primitive.ObjectID, rating int, page store.Page) ([]models.Review, int64, ReviewStats, error) {
	if rating != 0 {
		if err := validateRating(rating); err != nil {
			return nil, 0, ReviewStats{}, err
		}
	}
	if _, err := s.catalog.Get(ctx, productID); err != nil {
		return nil, 0, ReviewStats{}, err
	}

	approved := true
	reviews, total, err := s.store.Reviews().List(ctx, store.ReviewFilter{
		ProductID: &productID,
		Approved:  &approved,
		Rating:    rating,
		Page:      page,
	})
	if err != nil {
		return nil, 0, ReviewStats{}, translate(err, "reviews")
	}

	all, err := s.approved(ctx, productID)
	if err != nil {
		return nil, 0, ReviewStats{}, err
	}
	stats := ReviewStats{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	sum := 0
	for _, r := range all {
		sum += r.Rating
		stats.Distribution[r.Rating]++
	}
	stats.TotalReviews = len(all)
	stats.AverageRating = roundRating(sum, len(all))
	return reviews, total, stats, nil
}

func (s *Reviews) AdminList(ctx context.Context, filter store.ReviewFilter) ([]models.Review, int64, error) {
	reviews, total, err := s.store.Reviews().List(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, "reviews")
	}
	return reviews, total, nil
}
