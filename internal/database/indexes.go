package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func storefrontIndexes() []collectionIndexes {
	return []collectionIndexes{
		{
			collection: "products",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "slug", Value: 1}},
					Options: options.Index().SetName("slug_unique").SetUnique(true),
				},
				{
					Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "category", Value: 1}},
					Options: options.Index().SetName("active_category_index"),
				},
			},
		},
		{
			collection: "categories",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "slug", Value: 1}},
					Options: options.Index().SetName("slug_unique").SetUnique(true),
				},
				{
					Keys:    bson.D{{Key: "parentId", Value: 1}},
					Options: options.Index().SetName("parentId_index"),
				},
				{
					Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "sortOrder", Value: 1}},
					Options: options.Index().SetName("active_sortOrder_index"),
				},
			},
		},
		{
			collection: "carts",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "userId", Value: 1}},
					Options: options.Index().SetName("userId_unique").SetUnique(true),
				},
			},
		},
		{
			collection: "orders",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
					Options: options.Index().SetName("userId_createdAt_index"),
				},
				{
					Keys:    bson.D{{Key: "status", Value: 1}},
					Options: options.Index().SetName("status_index"),
				},
				{
					Keys: bson.D{{Key: "paymentSessionId", Value: 1}},
					Options: options.Index().
						SetName("paymentSessionId_unique").
						SetUnique(true).
						SetPartialFilterExpression(bson.M{
							"paymentSessionId": bson.M{
								"$exists": true,
							},
						}),
				},
			},
		},
		{
			collection: "reviews",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "productId", Value: 1}, {Key: "userId", Value: 1}},
					Options: options.Index().SetName("product_user_unique").SetUnique(true),
				},
			},
		},
		{
			collection: "wishlists",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "userId", Value: 1}},
					Options: options.Index().SetName("userId_unique").SetUnique(true),
				},
			},
		},
	}
}

// EnsureIndexes creates every index the storefront relies on. The unique
// indexes back the conflict errors returned by mongostore.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, ci := range storefrontIndexes() {
		logger.Info("creating indexes", zap.String("collection", ci.collection), zap.Int("count", len(ci.models)))
		names, err := db.Collection(ci.collection).Indexes().CreateMany(ctx, ci.models)
		if err != nil {
			logger.Error("index creation failed", zap.String("collection", ci.collection), zap.Error(err))
			return err
		}
		logger.Info("indexes ready", zap.String("collection", ci.collection), zap.Strings("names", names))
	}
	return nil
}
