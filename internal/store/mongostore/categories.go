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

type categoryRepo struct {
	coll *mongo.Collection
}

func (r categoryRepo) Insert(ctx context.Context, category *models.Category) error {
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, category)
	return mapError(err)
}

func (r categoryRepo) findOne(ctx context.Context, filter bson.M) (models.Category, error) {
	var c models.Category
	if err := r.coll.FindOne(ctx, filter).Decode(&c); err != nil {
		return models.Category{}, mapError(err)
	}
	return c, nil
}

func (r categoryRepo) Get(ctx context.Context, id primitive.ObjectID) (models.Category, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r categoryRepo) GetBySlug(ctx context.Context, slug string) (models.Category, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r categoryRepo) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "sortOrder", Value: 1}, {Key: "name", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	categories := make([]models.Category, 0)
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r categoryRepo) Update(ctx context.Context, id primitive.ObjectID, u store.CategoryUpdate) (models.Category, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.NameNp != nil {
		set["nameNp"] = *u.NameNp
	}
	if u.Slug != nil {
		set["slug"] = *u.Slug
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}
	if u.ClearParent {
		set["parentId"] = nil
	} else if u.ParentID != nil {
		set["parentId"] = *u.ParentID
	}
	if u.IsActive != nil {
		set["isActive"] = *u.IsActive
	}
	if u.SortOrder != nil {
		set["sortOrder"] = *u.SortOrder
	}

	var c models.Category
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&c)
	if err != nil {
		return models.Category{}, mapError(err)
	}
	return c, nil
}

func (r categoryRepo) HasActiveChildren(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"parentId": id, "isActive": true}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
