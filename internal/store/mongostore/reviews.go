package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
	"storefront/internal/store"
)

type reviewRepo struct {
	coll *mongo.Collection
}

func (r reviewRepo) Insert(ctx context.Context, review *models.Review) error {
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, review)
	return mapError(err)
}

func (r reviewRepo) Get(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	var review models.Review
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&review); err != nil {
		return models.Review{}, mapError(err)
	}
	return review, nil
}

func (r reviewRepo) Replace(ctx context.Context, review models.Review) error {
	review.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": review.ID}, review)
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r reviewRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r reviewRepo) update(ctx context.Context, id primitive.ObjectID, update bson.M) (models.Review, error) {
	var review models.Review
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&review)
	if err != nil {
		return models.Review{}, mapError(err)
	}
	return review, nil
}

func (r reviewRepo) IncrementHelpful(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	return r.update(ctx, id, bson.M{"$inc": bson.M{"helpfulCount": 1}})
}

func (r reviewRepo) SetApproved(ctx context.Context, id primitive.ObjectID, approved bool) (models.Review, error) {
	return r.update(ctx, id, bson.M{"$set": bson.M{"isApproved": approved, "updatedAt": time.Now().UTC()}})
}

func (r reviewRepo) List(ctx context.Context, filter store.ReviewFilter) ([]models.Review, int64, error) {
	query := bson.M{}
	if filter.ProductID != nil {
		query["productId"] = *filter.ProductID
	}
	if filter.Approved != nil {
		query["isApproved"] = *filter.Approved
	}
	if filter.Rating != 0 {
		query["rating"] = filter.Rating
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := r.coll.Find(ctx, query, findOptions(sortDoc("-createdAt"), filter.Page))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	reviews := make([]models.Review, 0)
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

type wishlistRepo struct {
	coll *mongo.Collection
}

func (r wishlistRepo) Get(ctx context.Context, userID primitive.ObjectID) (models.Wishlist, error) {
	var w models.Wishlist
	if err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&w); err != nil {
		return models.Wishlist{}, mapError(err)
	}
	if w.Items == nil {
		w.Items = []models.WishlistItem{}
	}
	return w, nil
}

func (r wishlistRepo) Save(ctx context.Context, w *models.Wishlist) error {
	now := time.Now().UTC()
	if w.Items == nil {
		w.Items = []models.WishlistItem{}
	}

	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"userId": w.UserID},
		bson.M{
			"$set":         bson.M{"items": w.Items, "updatedAt": now},
			"$setOnInsert": bson.M{"userId": w.UserID, "createdAt": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(w)
	return mapError(err)
}
